package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/pithecene-io/strata/internal/config"
	"github.com/pithecene-io/strata/strata"
)

var (
	collapse     bool
	strategyName string
	manifestPath string
	codecName    string
	compressName string
	emptyRaster  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <request.json|->",
	Short: "Resolve a batch of dataset descriptors",
	Long: "Resolve reads a JSON array of descriptors (flat or legacy shape) and prints the matching paths.\n" +
		"With --manifest the paths are written to a manifest file instead.",
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&collapse, "collapse", true, "report fully covered directories instead of their files")
	resolveCmd.Flags().StringVar(&strategyName, "strategy", "", "resolution strategy: walk or construct")
	resolveCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "write a manifest to this directory")
	resolveCmd.Flags().StringVar(&codecName, "codec", "", "manifest codec: jsonl or parquet")
	resolveCmd.Flags().StringVar(&compressName, "compressor", "", "manifest compressor: noop, gzip or zstd")
	resolveCmd.Flags().BoolVar(&emptyRaster, "empty", false, "report the placeholder raster when nothing matches")
}

func runResolve(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	descriptors, err := strata.DecodeRequest(data)
	if err != nil {
		return err
	}

	var extra []strata.Option
	if strategyName != "" {
		s, err := strata.ParseStrategy(strategyName)
		if err != nil {
			return err
		}
		extra = append(extra, strata.WithStrategy(s))
	}

	e, err := openEnv(cmd, extra...)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	doCollapse := e.cfg.Resolver.Collapse
	if cmd.Flags().Changed("collapse") {
		doCollapse = collapse
	}

	batch := e.resolver.Resolve(cmd.Context(), descriptors, doCollapse)
	if emptyRaster && batch.NumFiles == 0 && len(descriptors) > 0 {
		batch.UsePlaceholder(e.resolver.EmptyRaster(descriptors[0]))
	}

	if manifestPath != "" {
		return writeManifest(cmd, e.cfg, batch)
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(batch)
}

func writeManifest(cmd *cobra.Command, cfg *config.Config, batch strata.BatchResult) error {
	name := cfg.Resolver.Codec
	if codecName != "" {
		name = codecName
	}
	codec, err := strata.CodecByName(name)
	if err != nil {
		return err
	}
	name = cfg.Resolver.Compressor
	if compressName != "" {
		name = compressName
	}
	compressor, err := strata.CompressorByName(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(manifestPath, 0o755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	path := filepath.Join(manifestPath, strata.ManifestName(batch, codec, compressor))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := strata.WriteManifest(f, batch, codec, compressor); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", path)
	return nil
}

// readInput reads a file, or standard input when name is "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return data, nil
}
