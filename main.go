package main

import (
	"os"

	"github.com/phantom040901/devpath-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
