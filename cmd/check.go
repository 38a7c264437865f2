// File: cmd/check.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/editor"
	"github.com/rowanlabs/gridpager/internal/observability"
)

// newCheckCommand audits documents for structural defects: asymmetric or
// cyclic row chains, dangling merge references, grids that fail to build.
func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Audit documents for chain and merge integrity defects.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			defective := 0
			for _, path := range args {
				root, err := loadDocument(path)
				if err != nil {
					return err
				}
				problems := editor.CheckTree(root)
				if len(problems) == 0 {
					logger.Info("document is sound", zap.String("file", path))
					continue
				}
				defective++
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, p)
				}
			}
			if defective > 0 {
				return fmt.Errorf("%d of %d documents have integrity problems", defective, len(args))
			}
			return nil
		},
	}
}
