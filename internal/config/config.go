// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Storage() StorageConfig
	Engine() EngineConfig
	Geometry() GeometryConfig

	// Engine Setters
	SetEngineMaxRowHeight(float64)
	SetEngineSafetyBuffer(float64)
	SetEngineDebounce(d time.Duration)

	// Geometry Setters
	SetGeometryProvider(string)
	SetGeometryHeadless(bool)
}

// Config holds the entire application configuration. Access normally goes
// through the Interface's getter methods; the fields stay exported so viper
// can unmarshal into them.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	StorageCfg  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	EngineCfg   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	GeometryCfg GeometryConfig `mapstructure:"geometry" yaml:"geometry"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Storage() StorageConfig   { return c.StorageCfg }
func (c *Config) Engine() EngineConfig     { return c.EngineCfg }
func (c *Config) Geometry() GeometryConfig { return c.GeometryCfg }

// --- Interface Method Implementations (Setters) ---

// Engine Setters
func (c *Config) SetEngineMaxRowHeight(h float64)   { c.EngineCfg.MaxRowHeight = h }
func (c *Config) SetEngineSafetyBuffer(b float64)   { c.EngineCfg.SafetyBuffer = b }
func (c *Config) SetEngineDebounce(d time.Duration) { c.EngineCfg.Debounce = d }

// Geometry Setters
func (c *Config) SetGeometryProvider(p string) { c.GeometryCfg.Provider = p }
func (c *Config) SetGeometryHeadless(b bool)   { c.GeometryCfg.Chrome.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"`
	AddSource bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file"`
	// Rotation knobs for the file core, passed through to lumberjack.
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// StorageConfig holds the snapshot database connection details.
type StorageConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// EngineConfig tunes the pagination and merge-back engines.
type EngineConfig struct {
	// MaxRowHeight is the rendered-height limit of one cell before its
	// content paginates into a continuation row.
	MaxRowHeight float64 `mapstructure:"max_row_height" yaml:"max_row_height"`
	// SafetyBuffer keeps merge-back from pulling a block that would leave
	// the cell within this margin of the limit.
	SafetyBuffer float64 `mapstructure:"safety_buffer" yaml:"safety_buffer"`
	// Debounce is the quiet period after an edit before a reflow tick runs.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	// ScanInterval throttles whole-document reflow scans.
	ScanInterval time.Duration `mapstructure:"scan_interval" yaml:"scan_interval"`
	// ReflowCap bounds the synchronous reflow fixpoint iteration.
	ReflowCap int `mapstructure:"reflow_cap" yaml:"reflow_cap"`
}

// GeometryConfig selects and tunes the height measurement backend.
type GeometryConfig struct {
	// Provider is "estimator" for the deterministic text-metric model or
	// "chrome" for real headless-browser layout.
	Provider  string          `mapstructure:"provider" yaml:"provider"`
	Estimator EstimatorConfig `mapstructure:"estimator" yaml:"estimator"`
	Chrome    ChromeConfig    `mapstructure:"chrome" yaml:"chrome"`
}

// EstimatorConfig carries the text metrics of the deterministic provider.
type EstimatorConfig struct {
	CellWidth    float64 `mapstructure:"cell_width" yaml:"cell_width"`
	CharWidth    float64 `mapstructure:"char_width" yaml:"char_width"`
	LineHeight   float64 `mapstructure:"line_height" yaml:"line_height"`
	BlockSpacing float64 `mapstructure:"block_spacing" yaml:"block_spacing"`
}

// ChromeConfig holds settings for the headless browser measurement backend.
type ChromeConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Args           []string      `mapstructure:"args" yaml:"args"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "gridpager.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Engine --
	v.SetDefault("engine.max_row_height", 880.0)
	v.SetDefault("engine.safety_buffer", 10.0)
	v.SetDefault("engine.debounce", "16ms")
	v.SetDefault("engine.scan_interval", "1s")
	v.SetDefault("engine.reflow_cap", 64)

	// -- Geometry --
	v.SetDefault("geometry.provider", "estimator")
	v.SetDefault("geometry.estimator.cell_width", 400.0)
	v.SetDefault("geometry.estimator.char_width", 8.0)
	v.SetDefault("geometry.estimator.line_height", 20.0)
	v.SetDefault("geometry.estimator.block_spacing", 4.0)
	v.SetDefault("geometry.chrome.headless", true)
	v.SetDefault("geometry.chrome.viewport_width", 1280)
	v.SetDefault("geometry.chrome.viewport_height", 1024)
	v.SetDefault("geometry.chrome.timeout", "30s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	v.BindEnv("storage.url", "GRIDPAGER_STORAGE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the URL if Unmarshal didn't pick it up
	if cfg.StorageCfg.URL == "" {
		cfg.StorageCfg.URL = os.Getenv("GRIDPAGER_STORAGE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.MaxRowHeight <= 0 {
		return fmt.Errorf("engine.max_row_height must be a positive number")
	}
	if c.EngineCfg.SafetyBuffer < 0 {
		return fmt.Errorf("engine.safety_buffer must not be negative")
	}
	if c.EngineCfg.SafetyBuffer >= c.EngineCfg.MaxRowHeight {
		return fmt.Errorf("engine.safety_buffer must be smaller than engine.max_row_height")
	}
	if c.EngineCfg.Debounce <= 0 {
		return fmt.Errorf("engine.debounce must be a positive duration")
	}
	if c.EngineCfg.ReflowCap <= 0 {
		return fmt.Errorf("engine.reflow_cap must be a positive integer")
	}
	if err := c.GeometryCfg.Validate(); err != nil {
		return fmt.Errorf("geometry configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the GeometryConfig settings.
func (g *GeometryConfig) Validate() error {
	switch g.Provider {
	case "estimator":
		if g.Estimator.CellWidth <= 0 || g.Estimator.CharWidth <= 0 || g.Estimator.LineHeight <= 0 {
			return fmt.Errorf("estimator metrics must be positive numbers")
		}
	case "chrome":
		if g.Chrome.ViewportWidth <= 0 || g.Chrome.ViewportHeight <= 0 {
			return fmt.Errorf("chrome viewport dimensions must be positive integers")
		}
		if g.Chrome.Timeout <= 0 {
			return fmt.Errorf("chrome.timeout must be a positive duration")
		}
	default:
		return fmt.Errorf("unknown geometry provider %q", g.Provider)
	}
	return nil
}
