// File: cmd/snapshot.go
package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/docstore"
	"github.com/rowanlabs/gridpager/internal/observability"
)

// newSnapshotCommand groups the versioned snapshot store operations. All of
// them need storage.url (or GRIDPAGER_STORAGE_URL) to point at PostgreSQL.
func newSnapshotCommand() *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, restore and list document snapshots in PostgreSQL.",
	}
	snapshotCmd.AddCommand(newSnapshotSaveCommand())
	snapshotCmd.AddCommand(newSnapshotLoadCommand())
	snapshotCmd.AddCommand(newSnapshotListCommand())
	return snapshotCmd
}

// openStore connects to the configured database and ensures the schema.
func openStore(ctx context.Context, cmd *cobra.Command) (*docstore.Store, func(), error) {
	cfg := configFromContext(cmd.Context())
	url := cfg.Storage().URL
	if url == "" {
		return nil, nil, fmt.Errorf("storage.url is not configured; set GRIDPAGER_STORAGE_URL")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to storage: %w", err)
	}
	store := docstore.New(pool, observability.GetLogger())
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

func newSnapshotSaveCommand() *cobra.Command {
	var docID string

	saveCmd := &cobra.Command{
		Use:   "save [file.json]",
		Short: "Store a document as the next snapshot version.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			store, closeStore, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			version, err := store.Save(cmd.Context(), docID, root)
			if err != nil {
				return err
			}
			observability.GetLogger().Info("snapshot stored",
				zap.String("doc_id", docID), zap.Int64("version", version))
			return nil
		},
	}

	saveCmd.Flags().StringVar(&docID, "doc", "default", "document identifier")
	return saveCmd
}

func newSnapshotLoadCommand() *cobra.Command {
	var (
		docID   string
		version int64
		output  string
	)

	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "Restore a snapshot to a document file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if version > 0 {
				r, err := store.Load(cmd.Context(), docID, version)
				if err != nil {
					return err
				}
				return saveDocument(output, r)
			}
			r, latest, err := store.Latest(cmd.Context(), docID)
			if err != nil {
				return err
			}
			observability.GetLogger().Info("restored latest snapshot",
				zap.String("doc_id", docID), zap.Int64("version", latest))
			return saveDocument(output, r)
		},
	}

	loadCmd.Flags().StringVar(&docID, "doc", "default", "document identifier")
	loadCmd.Flags().Int64Var(&version, "version", 0, "specific version (0 means latest)")
	loadCmd.Flags().StringVarP(&output, "output", "o", "document.json", "destination document file")
	return loadCmd
}

func newSnapshotListCommand() *cobra.Command {
	var docID string

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored versions of a document.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			infos, err := store.List(cmd.Context(), docID)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tCREATED\tBYTES")
			for _, info := range infos {
				fmt.Fprintf(w, "%d\t%s\t%d\n", info.Version, info.CreatedAt.Format("2006-01-02 15:04:05"), info.Size)
			}
			return w.Flush()
		},
	}

	listCmd.Flags().StringVar(&docID, "doc", "default", "document identifier")
	return listCmd
}
