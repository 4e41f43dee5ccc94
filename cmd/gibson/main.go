package main

import (
	"fmt"
	"os"

	"github.com/phantomsec/gibson/internal/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
