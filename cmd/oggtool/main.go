// Package main is the entry point for the oggtool CLI.
//
// Usage:
//
//	oggtool [flags] <command> [args]
//
// Commands:
//
//	inspect    - List the pages of an Ogg file
//	extract    - Demultiplex logical streams into raw payload files
//	mux        - Multiplex files into one Ogg physical stream
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/oggstream/cmd/oggtool/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
