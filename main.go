package main

import (
	"os"

	"github.com/conneroisu/harness/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
