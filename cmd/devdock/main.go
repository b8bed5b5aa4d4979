package main

import (
	"os"

	"github.com/jakenelson/devdock/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
