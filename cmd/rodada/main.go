package main

import (
	"os"

	"github.com/clubrodada/rodada/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
