// Package config loads the strata command configuration from YAML.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/strata/internal/s3"
	"github.com/pithecene-io/strata/strata"
	s3archive "github.com/pithecene-io/strata/strata/s3"
)

// Archive types.
const (
	ArchiveFS = "fs"
	ArchiveS3 = "s3"
)

// Config is the top-level command configuration.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Resolver ResolverConfig `yaml:"resolver"`
	Layout   strata.Config  `yaml:"layout"`
}

// LogConfig configures the command logger.
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`    // "json" or "console"
	FilePath string `yaml:"file_path"` // Append JSON logs to this file
}

// ArchiveConfig selects and configures the archive backend.
type ArchiveConfig struct {
	Type string   `yaml:"type"`
	Root string   `yaml:"root"` // Filesystem root for type "fs"
	S3   S3Config `yaml:"s3"`
}

// S3Config configures an S3-compatible archive.
type S3Config struct {
	Bucket string          `yaml:"bucket"`
	Prefix string          `yaml:"prefix"`
	Client s3.ClientConfig `yaml:"client"`
}

// ResolverConfig holds resolution defaults.
type ResolverConfig struct {
	Strategy        string `yaml:"strategy"` // "walk" or "construct"
	WalkConcurrency int    `yaml:"walk_concurrency"`
	Collapse        bool   `yaml:"collapse"`
	Codec           string `yaml:"codec"`      // Manifest codec: "jsonl" or "parquet"
	Compressor      string `yaml:"compressor"` // Manifest compressor: "noop", "gzip" or "zstd"
}

// LoadDefaultConfig returns the configuration used when no file is given.
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Archive: ArchiveConfig{
			Type: ArchiveFS,
			Root: "/data/production",
		},
		Resolver: ResolverConfig{
			Strategy:        strata.StrategyWalk.String(),
			WalkConcurrency: strata.DefaultWalkConcurrency,
			Collapse:        true,
			Codec:           "jsonl",
			Compressor:      "noop",
		},
		Layout: strata.DefaultConfig(),
	}
}

// LoadConfig reads filename over the defaults and validates the result.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Archive.Validate(); err != nil {
		return err
	}
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if err := c.Layout.Validate(); err != nil {
		return fmt.Errorf("config: layout: %w", err)
	}
	return nil
}

// Validate validates the archive configuration.
func (a *ArchiveConfig) Validate() error {
	switch a.Type {
	case ArchiveFS:
		if a.Root == "" {
			return errors.New("config: archive.root is required for fs archives")
		}
	case ArchiveS3:
		if a.S3.Bucket == "" {
			return errors.New("config: archive.s3.bucket is required for s3 archives")
		}
		if err := a.S3.Client.Validate(); err != nil {
			return fmt.Errorf("config: archive.s3.client: %w", err)
		}
	default:
		return fmt.Errorf("config: unknown archive type %q", a.Type)
	}
	return nil
}

// Validate validates the resolver configuration.
func (r *ResolverConfig) Validate() error {
	if _, err := strata.ParseStrategy(r.Strategy); err != nil {
		return fmt.Errorf("config: resolver: %w", err)
	}
	if r.WalkConcurrency < 1 {
		return fmt.Errorf("config: resolver.walk_concurrency must be positive, got %d", r.WalkConcurrency)
	}
	if _, err := strata.CodecByName(r.Codec); err != nil {
		return fmt.Errorf("config: resolver: %w", err)
	}
	if _, err := strata.CompressorByName(r.Compressor); err != nil {
		return fmt.Errorf("config: resolver: %w", err)
	}
	return nil
}

// Options converts the resolver configuration into resolver options.
func (r *ResolverConfig) Options() ([]strata.Option, error) {
	strategy, err := strata.ParseStrategy(r.Strategy)
	if err != nil {
		return nil, err
	}
	return []strata.Option{
		strata.WithStrategy(strategy),
		strata.WithWalkConcurrency(r.WalkConcurrency),
	}, nil
}

// Open connects to the configured archive.
func (a *ArchiveConfig) Open(ctx context.Context) (strata.Archive, error) {
	switch a.Type {
	case ArchiveS3:
		client, err := s3.NewClient(ctx, a.S3.Client)
		if err != nil {
			return nil, err
		}
		return s3archive.New(client, s3archive.Config{Bucket: a.S3.Bucket, Prefix: a.S3.Prefix})
	default:
		return strata.NewFS(a.Root)
	}
}
