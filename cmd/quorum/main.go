// Package main provides the entry point for the quorum cluster harness CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

func main() {
	exitCode := run(os.Args)
	os.Exit(exitCode)
}

// run executes the CLI and returns an exit code.
// This is separated from main() to facilitate testing.
func run(args []string) int {
	return execute(context.Background(), args, os.Stdout, os.Stderr)
}

// execute runs the command tree with args[1:] and the given writers.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	if len(args) < 2 {
		root.Help()
		return 1
	}

	root.SetArgs(args[1:])
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
