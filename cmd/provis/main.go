package main

import (
	"os"

	"github.com/provisdev/provis/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
