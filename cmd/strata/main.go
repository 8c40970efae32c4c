// Command strata resolves dataset queries against a date-partitioned archive.
//
// Build with: go build -o bin/strata ./cmd/strata
// Usage: strata <command> [options]
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
