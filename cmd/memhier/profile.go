package main

import (
	"fmt"
	"os"
	"runtime/pprof"
)

// startProfiling starts a CPU profile when cpuPath is set. The returned stop
// function ends it and writes a heap profile when memPath is set.
func startProfiling(cpuPath, memPath string) (stop func() error, err error) {
	var cpuFile *os.File

	if cpuPath != "" {
		cpuFile, err = os.Create(cpuPath)
		if err != nil {
			return nil, fmt.Errorf("error creating CPU profile: %w", err)
		}

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			_ = cpuFile.Close()
			return nil, fmt.Errorf("error starting CPU profile: %w", err)
		}
	}

	return func() error {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			if err := cpuFile.Close(); err != nil {
				return err
			}
		}

		if memPath == "" {
			return nil
		}

		f, err := os.Create(memPath)
		if err != nil {
			return fmt.Errorf("error creating memory profile: %w", err)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("error writing memory profile: %w", err)
		}

		return nil
	}, nil
}
