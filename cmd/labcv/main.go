// Package main is the entry point for the LabCV desktop shell.
package main

import (
	"os"

	"github.com/labcv/labcv-desktop/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
