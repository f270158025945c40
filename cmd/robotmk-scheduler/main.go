package main

import (
	"os"

	"github.com/robotmk/scheduler/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
