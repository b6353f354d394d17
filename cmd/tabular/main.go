// Package main provides the CLI entry point for tabular.
package main

import (
	"os"

	"github.com/leapstack-labs/tabular/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
