package main

import (
	"os"

	"github.com/ErlanBelekov/docgate/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(cli.OpenFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
