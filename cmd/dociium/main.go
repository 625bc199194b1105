// Package main provides the entry point for the polydocs CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/polydocs-mcp/cmd/dociium/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
