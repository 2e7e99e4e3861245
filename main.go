// Package main provides the entry point for memhier.
// memhier simulates reads through an inclusive multi-level cache hierarchy
// built on Akita's cache directory.
//
// For the full CLI, use: go run ./cmd/memhier
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("memhier - Memory Hierarchy Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: memhier [flags] <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  read <addr>...     Read addresses and report where each was served")
	fmt.Println("  run [trace-file]   Replay an address trace")
	fmt.Println("  bench              Run the locality experiments")
	fmt.Println("  serve              Serve a hierarchy over HTTP")
	fmt.Println("  config dump        Print the effective configuration")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  --config     Path to hierarchy configuration JSON file")
	fmt.Println("  --preset     Built-in hierarchy (default, scenario-a)")
	fmt.Println("  --log-level  Log level")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/memhier' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/memhier' instead.")
	}
}
