package main

import (
	"os"

	"github.com/GooferByte/wellness-rewards/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
