// Package main implements the waitsync CLI.
//
// The waitsync tool exercises the waitsync primitives on the default park
// platform and reports what happened:
//
//	waitsync stress mutex           # N goroutines x M increments under one Mutex
//	waitsync stress once            # N goroutines race GetOrInit, repeatedly
//	waitsync stress once --fail-first
//	waitsync poison                 # poison a Mutex and show the poisoning site
//	waitsync metrics                # park counters in Prometheus text format
//	waitsync version --gomod go.mod # version and toolchain checks
//
// Every setting can also come from WAITSYNC_* environment variables or a
// .env file in the working directory.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/kolkov/waitsync/internal/waitsync/logging"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the CLI with args and releases the logger afterwards.
func run(args []string, stdout, stderr io.Writer) error {
	defer func() { _ = logging.Close() }()

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}
