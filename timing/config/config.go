// Package config provides the file-backed configuration of a memory
// hierarchy: level geometry, latencies and the simulated address space.
//
// The default values follow a desktop-class hierarchy of the kind used in
// teaching material: 64 KiB L1, 512 KiB L2, 16 MiB L3, DRAM and an SSD.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"
)

// Size is a byte count. In JSON it is either a number or a human-readable
// string such as "64KiB" or "16 MB".
type Size uint64

// UnmarshalJSON accepts both numeric and string forms.
func (s *Size) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Size(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("size must be a number or a string: %s", data)
	}

	n, err := humanize.ParseBytes(str)
	if err != nil {
		return fmt.Errorf("invalid size %q: %w", str, err)
	}
	*s = Size(n)

	return nil
}

// MarshalJSON writes the IEC form, e.g. "64 KiB".
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Size) String() string {
	return humanize.IBytes(uint64(s))
}

// LevelConfig describes one cache level.
type LevelConfig struct {
	// Name identifies the level, e.g. "L1".
	Name string `json:"name"`

	// Capacity of the level in bytes.
	Capacity Size `json:"capacity"`

	// Associativity is the number of ways per set; 0 means fully associative.
	Associativity int `json:"associativity,omitempty"`

	// Latency is charged every time the level is probed.
	Latency uint64 `json:"latency_ns"`
}

// MemoryConfig describes the main-memory tier.
type MemoryConfig struct {
	// Latency is charged when a read is served by main memory.
	Latency uint64 `json:"latency_ns"`
}

// Config holds the whole hierarchy description.
type Config struct {
	// LineSize is the cache line size shared by every level.
	// Default: 64 bytes.
	LineSize Size `json:"line_size"`

	// Levels lists the cache levels from fastest to slowest.
	Levels []LevelConfig `json:"levels"`

	// MainMemory is the optional RAM tier. A null value removes it so that
	// full misses go straight to the backing store.
	// Default: 100 ns.
	MainMemory *MemoryConfig `json:"main_memory"`

	// BackingLatency is charged when a line is loaded from the backing
	// store. Default: 10000 ns (SSD).
	BackingLatency uint64 `json:"backing_latency_ns"`

	// AddressSpace bounds valid addresses to [0, AddressSpace).
	// Default: 32 GiB.
	AddressSpace Size `json:"address_space"`
}

// DefaultConfig returns the default three-level hierarchy.
func DefaultConfig() *Config {
	return &Config{
		LineSize: 64,
		Levels: []LevelConfig{
			{Name: "L1", Capacity: 64 * humanize.KiByte, Latency: 1},
			{Name: "L2", Capacity: 512 * humanize.KiByte, Latency: 3},
			{Name: "L3", Capacity: 16 * humanize.MiByte, Latency: 15},
		},
		MainMemory:     &MemoryConfig{Latency: 100},
		BackingLatency: 10000,
		AddressSpace:   32 * humanize.GiByte,
	}
}

// ScenarioAConfig returns a tiny hierarchy that makes evictions easy to
// observe: 64B lines, L1/L2/L3 of 1/2/4 lines at 1/3/15 ns and a 100 ns
// backing store with no RAM tier.
func ScenarioAConfig() *Config {
	return &Config{
		LineSize: 64,
		Levels: []LevelConfig{
			{Name: "L1", Capacity: 64, Latency: 1},
			{Name: "L2", Capacity: 128, Latency: 3},
			{Name: "L3", Capacity: 256, Latency: 15},
		},
		BackingLatency: 100,
		AddressSpace:   1 << 32,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the file
// keep their default values; a "levels" array replaces the default levels
// as a whole.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy config file: %w", err)
	}

	config := DefaultConfig()
	config.Levels = nil
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy config: %w", err)
	}

	if config.Levels == nil {
		config.Levels = DefaultConfig().Levels
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize hierarchy config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hierarchy config file: %w", err)
	}

	return nil
}

// Validate checks the values that can be judged without building the
// hierarchy. Every problem found is reported.
func (c *Config) Validate() error {
	var errs error

	if c.LineSize == 0 {
		errs = multierr.Append(errs, fmt.Errorf("line_size must be > 0"))
	}
	if c.AddressSpace == 0 {
		errs = multierr.Append(errs, fmt.Errorf("address_space must be > 0"))
	}
	if len(c.Levels) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("levels must not be empty"))
	}

	for i, l := range c.Levels {
		if l.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("levels[%d]: name must not be empty", i))
		}
		if c.LineSize > 0 && l.Capacity < c.LineSize {
			errs = multierr.Append(errs,
				fmt.Errorf("levels[%d]: capacity %s is smaller than one line", i, l.Capacity))
		}
		if l.Associativity < 0 {
			errs = multierr.Append(errs, fmt.Errorf("levels[%d]: associativity must be >= 0", i))
		}
	}

	return errs
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c

	clone.Levels = make([]LevelConfig, len(c.Levels))
	copy(clone.Levels, c.Levels)

	if c.MainMemory != nil {
		memory := *c.MainMemory
		clone.MainMemory = &memory
	}

	return &clone
}
