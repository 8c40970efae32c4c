package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pithecene-io/strata/strata"
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <period> <start> <end>",
	Short: "Print the partition keys covering a date range",
	Long:  "Decompose splits the inclusive range from start to end into whole years, whole months and period-level keys.",
	Args:  cobra.ExactArgs(3),
	RunE:  runDecompose,
}

func runDecompose(cmd *cobra.Command, args []string) error {
	period, err := strata.ParseGranularity(args[0])
	if err != nil {
		return err
	}
	start, err := strata.ParseTime(args[1])
	if err != nil {
		return err
	}
	end, err := strata.ParseTime(args[2])
	if err != nil {
		return err
	}

	parts, err := strata.Decompose(period, start, end)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for g := strata.Year; g <= period; g++ {
		for _, k := range parts.Keys(g) {
			fmt.Fprintf(out, "%-5s %s\n", g, strata.DatePath(k, g, "/"))
		}
	}
	return nil
}
