package hierarchy

// LevelStats holds the counters of one cache level.
type LevelStats struct {
	Name      string  `json:"name"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// AccessStatistics summarizes every read completed since construction or
// the last ResetStats.
type AccessStatistics struct {
	Levels []LevelStats `json:"levels"`

	// RAMHits counts full cache misses served by main memory.
	RAMHits uint64 `json:"ram_hits"`

	// BackingLoads counts full cache misses served by the backing store.
	BackingLoads uint64 `json:"backing_loads"`

	TotalAccesses  uint64  `json:"total_accesses"`
	TotalLatency   uint64  `json:"total_latency_ns"`
	AverageLatency float64 `json:"average_latency_ns"`
}

// Level returns the statistics of the named level.
func (s AccessStatistics) Level(name string) (LevelStats, bool) {
	for _, l := range s.Levels {
		if l.Name == name {
			return l, true
		}
	}
	return LevelStats{}, false
}

// Stats returns a snapshot of the access statistics.
func (h *Hierarchy) Stats() AccessStatistics {
	stats := AccessStatistics{
		Levels:        make([]LevelStats, 0, len(h.levels)),
		BackingLoads:  h.backing.Loads(),
		TotalAccesses: h.totalAccesses,
		TotalLatency:  h.totalLatency,
	}

	for _, l := range h.levels {
		s := l.Stats()
		ls := LevelStats{
			Name:      l.Name(),
			Hits:      s.Hits,
			Misses:    s.Misses,
			Evictions: s.Evictions,
		}
		if probes := s.Hits + s.Misses; probes > 0 {
			ls.HitRate = float64(s.Hits) / float64(probes)
		}
		stats.Levels = append(stats.Levels, ls)
	}

	if h.memory != nil {
		stats.RAMHits = h.memory.Hits()
	}

	if h.totalAccesses > 0 {
		stats.AverageLatency = float64(h.totalLatency) / float64(h.totalAccesses)
	}

	return stats
}

// ResetStats zeroes every counter of the hierarchy and its tiers. Resident
// lines are kept.
func (h *Hierarchy) ResetStats() {
	h.totalAccesses = 0
	h.totalLatency = 0

	for _, l := range h.levels {
		l.ResetStats()
	}
	if h.memory != nil {
		h.memory.ResetStats()
	}
	h.backing.ResetStats()
}
