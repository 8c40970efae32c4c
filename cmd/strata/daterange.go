package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pithecene-io/strata/strata"
)

var rangeCmd = &cobra.Command{
	Use:   "range <descriptor.json|->",
	Short: "Print the first and last dates of a dataset",
	Long:  "Range reads a JSON array holding one dated descriptor and prints the dates of its first and last data maps.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRange,
}

func runRange(cmd *cobra.Command, args []string) error {
	data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	descriptors, err := strata.DecodeRequest(data)
	if err != nil {
		return err
	}
	if len(descriptors) != 1 {
		return fmt.Errorf("range: expected one descriptor, got %d", len(descriptors))
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	first, last, ok, err := e.resolver.DatasetDateRange(cmd.Context(), descriptors[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("range: dataset %s has no data maps", descriptors[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", first.Format(time.RFC3339), last.Format(time.RFC3339))
	return nil
}
