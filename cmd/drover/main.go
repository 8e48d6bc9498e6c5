package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/loykin/drover/internal/supervisor"
)

func main() {
	root := buildRoot(&GlobalFlags{})
	if err := root.Execute(); err != nil {
		exitWith(err)
	}
}

// exitWith prints a short human-readable cause to stderr and exits non-zero.
// A startup timeout additionally surfaces the captured daemon log tail; a
// not-running status is a clean exit 1 with no error noise.
func exitWith(err error) {
	if errors.Is(err, errNotRunning) {
		os.Exit(1)
	}
	_, _ = fmt.Fprintln(os.Stderr, err)
	var ste *supervisor.StartupTimeoutError
	if errors.As(err, &ste) && ste.LogTail != "" {
		_, _ = fmt.Fprintln(os.Stderr, "--- daemon log tail ---")
		_, _ = fmt.Fprintln(os.Stderr, ste.LogTail)
	}
	os.Exit(1)
}
