package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pithecene-io/strata/internal/config"
	"github.com/pithecene-io/strata/strata"
)

var (
	configPath  string
	logLevel    string
	archiveRoot string
)

var rootCmd = &cobra.Command{
	Use:          "strata",
	Short:        "Date-partitioned archive resolver",
	Long:         "Strata finds the archive files matching dataset descriptors and collapses fully covered directories.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVar(&archiveRoot, "root", "", "filesystem archive root (overrides the configured archive)")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(rangeCmd)
	rootCmd.AddCommand(decomposeCmd)
}

// loadConfig loads the configuration file, if any, and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.LoadDefaultConfig()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if archiveRoot != "" {
		cfg.Archive.Type = config.ArchiveFS
		cfg.Archive.Root = archiveRoot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env bundles what every archive-backed command needs.
type env struct {
	cfg      *config.Config
	logger   zerolog.Logger
	resolver *strata.Resolver
	closer   io.Closer
}

func (e *env) Close() error { return e.closer.Close() }

// openEnv loads configuration, sets up logging and opens the archive.
// Extra options are applied after the configured ones.
func openEnv(cmd *cobra.Command, extra ...strata.Option) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closer, err := config.SetupLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	archive, err := cfg.Archive.Open(cmd.Context())
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("open archive: %w", err)
	}

	opts, err := cfg.Resolver.Options()
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	opts = append(opts, strata.WithLogger(logger))
	opts = append(opts, extra...)

	resolver, err := strata.NewResolver(archive, cfg.Layout, opts...)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	logger.Debug().Str("archive", cfg.Archive.Type).Msg("archive opened")
	return &env{cfg: cfg, logger: logger, resolver: resolver, closer: closer}, nil
}
