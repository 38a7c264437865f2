// File: cmd/convert.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/observability"
)

// newImportCommand converts the first table of an HTML file into the JSON
// document model.
func newImportCommand() *cobra.Command {
	var output string

	importCmd := &cobra.Command{
		Use:   "import [file.html]",
		Short: "Import the first HTML table of a file as a document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open '%s': %w", args[0], err)
			}
			defer f.Close()

			table, err := doc.ParseHTMLTable(f)
			if err != nil {
				return fmt.Errorf("failed to import '%s': %w", args[0], err)
			}
			root := doc.NewNode(doc.KindDoc, table)

			if err := saveDocument(output, root); err != nil {
				return err
			}
			observability.GetLogger().Info("imported table",
				zap.String("input", args[0]), zap.String("output", output))
			return nil
		},
	}

	importCmd.Flags().StringVarP(&output, "output", "o", "document.json", "destination document file")
	return importCmd
}

// newExportCommand renders a document as standalone XHTML, the same markup
// the chrome geometry provider measures.
func newExportCommand() *cobra.Command {
	var (
		output    string
		cellWidth float64
	)

	exportCmd := &cobra.Command{
		Use:   "export [file.json]",
		Short: "Export a document as standalone XHTML.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := loadDocument(args[0])
			if err != nil {
				return err
			}
			markup, err := doc.ExportXHTML(root, cellWidth)
			if err != nil {
				return fmt.Errorf("failed to export '%s': %w", args[0], err)
			}
			if err := os.WriteFile(output, []byte(markup), 0o644); err != nil {
				return fmt.Errorf("failed to write '%s': %w", output, err)
			}
			observability.GetLogger().Info("exported document",
				zap.String("input", args[0]), zap.String("output", output))
			return nil
		},
	}

	exportCmd.Flags().StringVarP(&output, "output", "o", "document.html", "destination markup file")
	exportCmd.Flags().Float64Var(&cellWidth, "cell-width", 400, "rendered cell width in pixels")
	return exportCmd
}
