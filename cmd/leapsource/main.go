// Package main provides the leapsource CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapsource/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
