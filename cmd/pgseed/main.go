package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pgseed/pgseed/internal/cli"
	"github.com/pgseed/pgseed/pkg/pgseed"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(pgseed.ExitPanic)
		}
	}()

	if os.Getenv("PGSEED_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(pgseed.ExitCodeForError(err))
	}
}
