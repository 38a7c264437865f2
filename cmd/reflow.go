// File: cmd/reflow.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rowanlabs/gridpager/internal/config"
	"github.com/rowanlabs/gridpager/internal/editor"
	"github.com/rowanlabs/gridpager/internal/geometry"
	"github.com/rowanlabs/gridpager/internal/observability"
)

// newReflowCommand paginates every document given on the command line until
// no cell exceeds the configured row-height limit, rewriting the files in
// place unless an output path is set.
func newReflowCommand() *cobra.Command {
	var (
		output      string
		concurrency int
	)

	reflowCmd := &cobra.Command{
		Use:   "reflow [files...]",
		Short: "Reflow documents until every cell fits the row-height limit.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			logger := observability.GetLogger()

			if output != "" && len(args) != 1 {
				return fmt.Errorf("--output requires exactly one input file")
			}

			geo, closeGeo, err := buildProvider(cfg, logger)
			if err != nil {
				return err
			}
			defer closeGeo()

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for _, path := range args {
				g.Go(func() error {
					return reflowFile(ctx, path, output, cfg, geo, logger)
				})
			}
			return g.Wait()
		},
	}

	reflowCmd.Flags().StringVarP(&output, "output", "o", "", "write the result here instead of in place (single input only)")
	reflowCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of documents processed in parallel")
	return reflowCmd
}

func reflowFile(ctx context.Context, path, output string, cfg config.Interface, geo geometry.Provider, logger *zap.Logger) error {
	root, err := loadDocument(path)
	if err != nil {
		return err
	}

	ed := editor.New(root, geo, editorConfig(cfg), logger)
	if err := ed.ReflowAll(ctx); err != nil {
		return fmt.Errorf("failed to reflow '%s': %w", path, err)
	}

	dest := path
	if output != "" {
		dest = output
	}
	if err := saveDocument(dest, ed.Root()); err != nil {
		return err
	}
	logger.Info("reflowed document", zap.String("input", path), zap.String("output", dest))
	return nil
}
