// Package main is the entry point for the todoapp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/romanslonov/todoapp/internal/cli"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	root := cli.NewRootCommand(version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
