// Package main provides the entry point for the inkwell CLI.
package main

import (
	"fmt"
	"os"

	"github.com/inkwell-md/inkwell/cmd/inkwell/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
