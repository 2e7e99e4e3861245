// Package main provides the memhier command, a memory hierarchy simulator.
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}

	// Flushes trace writers registered during the run
	atexit.Exit(0)
}
