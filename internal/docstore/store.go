// internal/docstore/store.go

// Package docstore persists document snapshots in PostgreSQL. Snapshots are
// immutable and versioned per document; the JSON payload is brotli
// compressed before storage since grid documents are highly repetitive.
package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
)

// ErrNotFound reports a missing document or version.
var ErrNotFound = errors.New("docstore: snapshot not found")

// DB is the subset of the pgx pool the store needs. pgxpool.Pool satisfies
// it, as do the pgxmock pools used in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SnapshotInfo describes one stored version without its payload.
type SnapshotInfo struct {
	DocID     string
	Version   int64
	CreatedAt time.Time
	Size      int
}

// Store is a versioned snapshot store over a single snapshots table.
type Store struct {
	db     DB
	logger *zap.Logger
}

// New wraps db in a snapshot store.
func New(db DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.With(zap.String("component", "docstore"))}
}

// EnsureSchema creates the snapshots table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS snapshots (
			doc_id     TEXT        NOT NULL,
			version    BIGINT      NOT NULL,
			payload    BYTEA       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (doc_id, version)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure snapshots schema: %w", err)
	}
	return nil
}

// Save stores root as the next version of docID and returns the assigned
// version number.
func (s *Store) Save(ctx context.Context, docID string, root *doc.Node) (int64, error) {
	raw, err := doc.Marshal(root)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal document '%s': %w", docID, err)
	}
	payload, err := compress(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to compress document '%s': %w", docID, err)
	}

	var version int64
	err = s.db.QueryRow(ctx, `
		INSERT INTO snapshots (doc_id, version, payload)
		VALUES ($1, COALESCE((SELECT MAX(version) FROM snapshots WHERE doc_id = $1), 0) + 1, $2)
		RETURNING version;
	`, docID, payload).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to save snapshot for '%s': %w", docID, err)
	}

	s.logger.Info("saved snapshot",
		zap.String("doc_id", docID),
		zap.Int64("version", version),
		zap.Int("raw_bytes", len(raw)),
		zap.Int("stored_bytes", len(payload)))
	return version, nil
}

// Load retrieves one specific version of a document.
func (s *Store) Load(ctx context.Context, docID string, version int64) (*doc.Node, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, `
		SELECT payload FROM snapshots WHERE doc_id = $1 AND version = $2;
	`, docID, version).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %d of '%s': %w", version, docID, err)
	}
	return decode(payload)
}

// Latest retrieves the newest version of a document.
func (s *Store) Latest(ctx context.Context, docID string) (*doc.Node, int64, error) {
	var (
		payload []byte
		version int64
	)
	err := s.db.QueryRow(ctx, `
		SELECT payload, version FROM snapshots
		WHERE doc_id = $1 ORDER BY version DESC LIMIT 1;
	`, docID).Scan(&payload, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load latest snapshot of '%s': %w", docID, err)
	}
	root, err := decode(payload)
	if err != nil {
		return nil, 0, err
	}
	return root, version, nil
}

// List returns the stored versions of a document, newest first.
func (s *Store) List(ctx context.Context, docID string) ([]SnapshotInfo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT doc_id, version, created_at, length(payload) FROM snapshots
		WHERE doc_id = $1 ORDER BY version DESC;
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots of '%s': %w", docID, err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.DocID, &info.Version, &info.CreatedAt, &info.Size); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	return out, nil
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload []byte) (*doc.Node, error) {
	raw, err := io.ReadAll(brotli.NewReader(bytes.NewReader(payload)))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	root, err := doc.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return root, nil
}
