// -- cmd/root.go --
package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rowanlabs/gridpager/internal/config"
	"github.com/rowanlabs/gridpager/internal/observability"
)

// NewRootCommand builds a fresh root command tree. A new instance per
// invocation keeps flag state from leaking between runs.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "gridpager",
		Short: "gridpager reflows table documents with merged cells across row-height limits.",
		// Version is dynamically set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// This function runs before any command, setting up config and logging.
			v, err := initializeConfig(cfgFile)
			if err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Initialize a fallback logger if config loading fails.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console"})
				return err
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Info("Starting gridpager", zap.String("version", Version))

			cmd.SetContext(withConfig(cmd.Context(), cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./gridpager.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newReflowCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newSnapshotCommand())
	return rootCmd
}

// Execute runs the root command against ctx and returns its error after
// logging it.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		return err
	}
	return nil
}

type configKey struct{}

func withConfig(ctx context.Context, cfg config.Interface) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFromContext recovers the loaded configuration placed on the command
// context by PersistentPreRunE. Falls back to defaults so subcommands stay
// usable in isolation, as in tests.
func configFromContext(ctx context.Context) config.Interface {
	if cfg, ok := ctx.Value(configKey{}).(config.Interface); ok {
		return cfg
	}
	return config.NewDefaultConfig()
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".gridpager"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("gridpager")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("GRIDPAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}
	return v, nil
}
