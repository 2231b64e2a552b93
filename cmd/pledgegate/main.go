// Package main is the entry point for the pledgegate CLI.
package main

import (
	"os"

	"github.com/pledgegate/pledgegate/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
