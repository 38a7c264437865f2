// internal/docstore/store_test.go
package docstore

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// flexibleSQLMatcher builds a whitespace-insensitive regex for robust SQL
// expectation matching.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

const (
	sqlSaveSnapshot = `
		INSERT INTO snapshots (doc_id, version, payload)
		VALUES ($1, COALESCE((SELECT MAX(version) FROM snapshots WHERE doc_id = $1), 0) + 1, $2)
		RETURNING version;
	`
	sqlLoadSnapshot   = `SELECT payload FROM snapshots WHERE doc_id = $1 AND version = $2;`
	sqlLatestSnapshot = `
		SELECT payload, version FROM snapshots
		WHERE doc_id = $1 ORDER BY version DESC LIMIT 1;
	`
	sqlListSnapshots = `
		SELECT doc_id, version, created_at, length(payload) FROM snapshots
		WHERE doc_id = $1 ORDER BY version DESC;
	`
)

func testDocument() *doc.Node {
	return doc.NewNode(doc.KindDoc,
		doc.NewNode(doc.KindTable, doc.NewNode(doc.KindSection,
			doc.NewNode(doc.KindRow,
				doc.NewNode(doc.KindCell, doc.NewNode(doc.KindParagraph, doc.NewText("hello"))),
			),
		)))
}

func newMockedStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return New(mockPool, zaptest.NewLogger(t)), mockPool
}

func TestEnsureSchema(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectExec(flexibleSQLMatcher("CREATE TABLE IF NOT EXISTS snapshots")).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEnsureSchemaError(t *testing.T) {
	store, mockPool := newMockedStore(t)
	dbErr := errors.New("permission denied")
	mockPool.ExpectExec(flexibleSQLMatcher("CREATE TABLE IF NOT EXISTS snapshots")).
		WillReturnError(dbErr)

	err := store.EnsureSchema(context.Background())
	assert.ErrorIs(t, err, dbErr)
}

func TestSave(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlSaveSnapshot)).
		WithArgs("doc-1", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(3)))

	version, err := store.Save(context.Background(), "doc-1", testDocument())
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSaveQueryError(t *testing.T) {
	store, mockPool := newMockedStore(t)
	dbErr := errors.New("connection reset")
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlSaveSnapshot)).
		WithArgs("doc-1", pgxmock.AnyArg()).
		WillReturnError(dbErr)

	_, err := store.Save(context.Background(), "doc-1", testDocument())
	assert.ErrorIs(t, err, dbErr)
}

func TestLoadRoundTrip(t *testing.T) {
	store, mockPool := newMockedStore(t)

	original := testDocument()
	raw, err := doc.Marshal(original)
	require.NoError(t, err)
	payload, err := compress(raw)
	require.NoError(t, err)

	mockPool.ExpectQuery(flexibleSQLMatcher(sqlLoadSnapshot)).
		WithArgs("doc-1", int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	loaded, err := store.Load(context.Background(), "doc-1", 2)
	require.NoError(t, err)
	assert.Equal(t, doc.KindDoc, loaded.Kind)
	assert.Equal(t, "hello", doc.TextContent(loaded))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLoadNotFound(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlLoadSnapshot)).
		WithArgs("ghost", int64(1)).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Load(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptPayload(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlLoadSnapshot)).
		WithArgs("doc-1", int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow([]byte("not brotli")))

	_, err := store.Load(context.Background(), "doc-1", 1)
	assert.Error(t, err)
}

func TestLatest(t *testing.T) {
	store, mockPool := newMockedStore(t)

	raw, err := doc.Marshal(testDocument())
	require.NoError(t, err)
	payload, err := compress(raw)
	require.NoError(t, err)

	mockPool.ExpectQuery(flexibleSQLMatcher(sqlLatestSnapshot)).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "version"}).AddRow(payload, int64(7)))

	root, version, err := store.Latest(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), version)
	assert.Equal(t, "hello", doc.TextContent(root))
}

func TestLatestNotFound(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlLatestSnapshot)).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, _, err := store.Latest(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	store, mockPool := newMockedStore(t)

	now := time.Now()
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListSnapshots)).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc_id", "version", "created_at", "length"}).
			AddRow("doc-1", int64(2), now, 512).
			AddRow("doc-1", int64(1), now.Add(-time.Hour), 256))

	infos, err := store.List(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, int64(2), infos[0].Version)
	assert.Equal(t, 512, infos[0].Size)
	assert.Equal(t, int64(1), infos[1].Version)
}

func TestListEmpty(t *testing.T) {
	store, mockPool := newMockedStore(t)
	mockPool.ExpectQuery(flexibleSQLMatcher(sqlListSnapshots)).
		WithArgs("doc-1").
		WillReturnRows(pgxmock.NewRows([]string{"doc_id", "version", "created_at", "length"}))

	infos, err := store.List(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestCompressRoundTrip(t *testing.T) {
	original := testDocument()
	raw, err := doc.Marshal(original)
	require.NoError(t, err)

	payload, err := compress(raw)
	require.NoError(t, err)

	decoded, err := decode(payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.TextContent(decoded))
}
