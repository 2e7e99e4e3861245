package benchmarks

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/sarchlab/memhier/timing/hierarchy"
)

// Sequential returns count addresses starting at start and advancing by
// stride bytes.
func Sequential(start uint64, count int, stride uint64) []uint64 {
	addrs := make([]uint64, count)
	for i := range addrs {
		addrs[i] = start + uint64(i)*stride
	}
	return addrs
}

// Random returns count line-aligned addresses whose line index is drawn
// uniformly from [0, maxLine]. The same seed always gives the same trace.
func Random(seed int64, count int, maxLine, lineSize uint64) []uint64 {
	rng := rand.New(rand.NewSource(seed))

	addrs := make([]uint64, count)
	for i := range addrs {
		addrs[i] = uint64(rng.Int63n(int64(maxLine)+1)) * lineSize
	}
	return addrs
}

// WorkingSet walks the first lines lines in order, passes times.
func WorkingSet(lines int, lineSize uint64, passes int) []uint64 {
	addrs := make([]uint64, 0, lines*passes)
	for p := 0; p < passes; p++ {
		for i := 0; i < lines; i++ {
			addrs = append(addrs, uint64(i)*lineSize)
		}
	}
	return addrs
}

// Demo returns a short trace mixing spatial and temporal locality.
func Demo() []uint64 {
	return []uint64{0x1000, 0x1004, 0x1008, 0x2000, 0x3000, 0x1000, 0x4000, 0x1004}
}

// GetExperiments returns the standard locality experiments.
func GetExperiments() []Benchmark {
	return []Benchmark{
		{
			Name:        "sequential",
			Description: "1000 reads with a 4-byte stride from 0x1000 - spatial locality",
			Trace:       func() []uint64 { return Sequential(0x1000, 1000, 4) },
		},
		{
			Name:        "random",
			Description: "1000 line-aligned reads over 10M lines - no locality",
			Trace:       func() []uint64 { return Random(42, 1000, 10_000_000, 64) },
		},
		{
			Name:        "working_set",
			Description: "100 lines read 10 times - temporal locality",
			Trace:       func() []uint64 { return WorkingSet(100, 64, 10) },
		},
		{
			Name:        "demo",
			Description: "8 reads mixing nearby and repeated addresses",
			Trace:       Demo,
		},
	}
}

// ParseTrace reads one address per line. Addresses are decimal or 0x-prefixed
// hexadecimal; blank lines and lines starting with '#' are skipped.
func ParseTrace(r io.Reader) ([]uint64, error) {
	var addrs []uint64

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		addr, err := hierarchy.ParseAddress(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		addrs = append(addrs, addr)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}

	return addrs, nil
}
