// Package main is the viewlens CLI entrypoint.
package main

import (
	"os"

	"github.com/leapstack-labs/viewlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
