package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/sarchlab/memhier/timing/hierarchy"
)

func printResult(w io.Writer, r hierarchy.Result) {
	_, _ = fmt.Fprintf(w, "%#-12x line %#-12x %-12s %8d ns  %s\n",
		r.Address, r.LineAddress, r.Level, r.Latency, r.Payload)
}

func printStats(w io.Writer, s hierarchy.AccessStatistics) {
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "%-6s %12s %12s %12s %9s\n", "Level", "Hits", "Misses", "Evictions", "Hit%")
	for _, l := range s.Levels {
		_, _ = fmt.Fprintf(w, "%-6s %12s %12s %12s %8.2f%%\n",
			l.Name,
			humanize.Comma(int64(l.Hits)),
			humanize.Comma(int64(l.Misses)),
			humanize.Comma(int64(l.Evictions)),
			100*l.HitRate)
	}
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintf(w, "RAM hits:        %s\n", humanize.Comma(int64(s.RAMHits)))
	_, _ = fmt.Fprintf(w, "Backing loads:   %s\n", humanize.Comma(int64(s.BackingLoads)))
	_, _ = fmt.Fprintf(w, "Total accesses:  %s\n", humanize.Comma(int64(s.TotalAccesses)))
	_, _ = fmt.Fprintf(w, "Total latency:   %s ns\n", humanize.Comma(int64(s.TotalLatency)))
	_, _ = fmt.Fprintf(w, "Average latency: %.2f ns\n", s.AverageLatency)
}
