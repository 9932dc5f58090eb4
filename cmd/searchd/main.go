// Package main provides the entry point for the searchd CLI.
package main

import (
	"os"

	"github.com/sourcebot-dev/sourcebot-sub003/cmd/searchd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
