package main

import (
	"os"

	"github.com/candidus/assessor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
