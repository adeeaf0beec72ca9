// Package main provides the entry point for the docsum CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/docsum/internal/cli"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// cli.Execute reports the error itself.
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
