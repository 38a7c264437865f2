// File: cmd/helpers.go
package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/config"
	"github.com/rowanlabs/gridpager/internal/doc"
	"github.com/rowanlabs/gridpager/internal/editor"
	"github.com/rowanlabs/gridpager/internal/geometry"
	"github.com/rowanlabs/gridpager/internal/scheduler"
)

// buildProvider constructs the configured geometry backend. The returned
// cleanup function is a no-op for the estimator and tears down the browser
// allocator for chrome.
func buildProvider(cfg config.Interface, logger *zap.Logger) (geometry.Provider, func(), error) {
	geo := cfg.Geometry()
	switch geo.Provider {
	case "chrome":
		ch, err := geometry.NewChrome(geometry.ChromeConfig{
			CellWidth:      geo.Estimator.CellWidth,
			ViewportWidth:  geo.Chrome.ViewportWidth,
			ViewportHeight: geo.Chrome.ViewportHeight,
			Timeout:        geo.Chrome.Timeout,
			Headless:       geo.Chrome.Headless,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start chrome provider: %w", err)
		}
		return ch, ch.Close, nil
	default:
		est, err := geometry.NewEstimator(geometry.Metrics{
			CellWidth:    geo.Estimator.CellWidth,
			CharWidth:    geo.Estimator.CharWidth,
			LineHeight:   geo.Estimator.LineHeight,
			BlockSpacing: geo.Estimator.BlockSpacing,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build estimator: %w", err)
		}
		return est, func() {}, nil
	}
}

// editorConfig maps the loaded configuration onto the editor's knobs.
func editorConfig(cfg config.Interface) editor.Config {
	eng := cfg.Engine()
	return editor.Config{
		MaxRowHeight: eng.MaxRowHeight,
		SafetyBuffer: eng.SafetyBuffer,
		ReflowCap:    eng.ReflowCap,
		Scheduler: scheduler.Config{
			Debounce:     eng.Debounce,
			ScanInterval: eng.ScanInterval,
		},
	}
}

// loadDocument reads a JSON document file into a tree.
func loadDocument(path string) (*doc.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document '%s': %w", path, err)
	}
	root, err := doc.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document '%s': %w", path, err)
	}
	return root, nil
}

// saveDocument writes a tree back out as indented JSON.
func saveDocument(path string, root *doc.Node) error {
	data, err := doc.MarshalIndent(root)
	if err != nil {
		return fmt.Errorf("failed to encode document '%s': %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document '%s': %w", path, err)
	}
	return nil
}
