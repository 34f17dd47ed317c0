package main

import (
	"os"

	"github.com/wonny/tradegate/cmd/tradegate/commands"
)

// main is the entry point for the tradegate CLI
// ⭐ Unified entry: go run ./cmd/tradegate [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
