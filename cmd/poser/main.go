package main

import (
	"fmt"
	"os"

	"github.com/roach88/poser/internal/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	root := cli.NewRootCommand()
	root.Version = Version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
