// Package main is the entry point for the dropdeck CLI/TUI.
package main

import (
	"os"

	"github.com/watchfire-io/dropdeck/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
