package hierarchy

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/sarchlab/memhier/timing/cache"
	"github.com/sarchlab/memhier/timing/config"
)

// DefaultAddressSpace is the address-space bound used when none is given
// (32 GiB).
const DefaultAddressSpace uint64 = 32 << 30

// Builder can build hierarchies.
type Builder struct {
	levels         []cache.Config
	hasMemory      bool
	memoryLatency  uint64
	backingLatency uint64
	addressSpace   uint64
	source         cache.Source
	logger         *logrus.Logger
}

// MakeBuilder creates a builder with no levels, no main memory, a zero
// latency backing store and the default address space.
func MakeBuilder() Builder {
	return Builder{
		addressSpace: DefaultAddressSpace,
		source:       cache.PlaceholderSource{},
	}
}

// WithLevel appends a cache level below the ones already added.
func (b Builder) WithLevel(level cache.Config) Builder {
	levels := make([]cache.Config, len(b.levels), len(b.levels)+1)
	copy(levels, b.levels)
	b.levels = append(levels, level)
	return b
}

// WithMainMemory adds a RAM tier with the given latency.
func (b Builder) WithMainMemory(latency uint64) Builder {
	b.hasMemory = true
	b.memoryLatency = latency
	return b
}

// WithoutMainMemory removes the RAM tier.
func (b Builder) WithoutMainMemory() Builder {
	b.hasMemory = false
	b.memoryLatency = 0
	return b
}

// WithBackingLatency sets the backing store latency.
func (b Builder) WithBackingLatency(latency uint64) Builder {
	b.backingLatency = latency
	return b
}

// WithAddressSpace sets the exclusive upper bound of valid addresses.
func (b Builder) WithAddressSpace(size uint64) Builder {
	b.addressSpace = size
	return b
}

// WithSource sets the value source of the backing store.
func (b Builder) WithSource(source cache.Source) Builder {
	b.source = source
	return b
}

// WithLogger sets the logger. Evictions and fills are logged at debug level.
func (b Builder) WithLogger(logger *logrus.Logger) Builder {
	b.logger = logger
	return b
}

// Build creates a hierarchy. It fails with ErrConfiguration, listing every
// problem, when the level definitions are inconsistent.
func (b Builder) Build(name string) (*Hierarchy, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, name, err)
	}

	h := &Hierarchy{
		HookableBase: sim.NewHookableBase(),
		name:         name,
		lineSize:     uint64(b.levels[0].LineSize),
		addressSpace: b.addressSpace,
		backing:      cache.NewBackingStore(b.backingLatency, b.source),
		log:          b.logger,
	}

	for _, c := range b.levels {
		h.levels = append(h.levels, cache.New(c))
	}

	if b.hasMemory {
		h.memory = cache.NewMainMemory(b.memoryLatency)
	}

	if h.log == nil {
		h.log = logrus.New()
		h.log.SetLevel(logrus.WarnLevel)
	}

	return h, nil
}

func (b Builder) validate() error {
	if len(b.levels) == 0 {
		return fmt.Errorf("at least one cache level is required")
	}

	var errs error

	if b.addressSpace == 0 {
		errs = multierr.Append(errs, fmt.Errorf("address space must be > 0"))
	}

	names := make(map[string]bool)
	lineSize := b.levels[0].LineSize
	for i, c := range b.levels {
		if err := c.Validate(); err != nil {
			errs = multierr.Append(errs, err)
		}

		switch {
		case c.Name == "":
			errs = multierr.Append(errs, fmt.Errorf("level %d has no name", i))
		case c.Name == cache.RAMName || c.Name == cache.BackingStoreName:
			errs = multierr.Append(errs, fmt.Errorf("level name %q is reserved", c.Name))
		case names[c.Name]:
			errs = multierr.Append(errs, fmt.Errorf("level name %q is used twice", c.Name))
		}
		names[c.Name] = true

		if c.LineSize != lineSize {
			errs = multierr.Append(errs, fmt.Errorf(
				"level %q: line size %d differs from %d", c.Name, c.LineSize, lineSize))
		}

		if i > 0 && c.Latency < b.levels[i-1].Latency {
			errs = multierr.Append(errs, fmt.Errorf(
				"level %q: latency %d ns is lower than %q's %d ns",
				c.Name, c.Latency, b.levels[i-1].Name, b.levels[i-1].Latency))
		}
	}

	last := b.levels[len(b.levels)-1]
	next, nextName := last.Latency, last.Name
	if b.hasMemory {
		if b.memoryLatency < next {
			errs = multierr.Append(errs, fmt.Errorf(
				"main memory latency %d ns is lower than %q's %d ns",
				b.memoryLatency, nextName, next))
		}
		next, nextName = b.memoryLatency, cache.RAMName
	}
	if b.backingLatency < next {
		errs = multierr.Append(errs, fmt.Errorf(
			"backing store latency %d ns is lower than %q's %d ns",
			b.backingLatency, nextName, next))
	}

	return errs
}

// An Option adjusts the builder used by FromConfig.
type Option func(Builder) Builder

// FromConfig builds a hierarchy from a file-backed configuration.
func FromConfig(name string, c *config.Config, opts ...Option) (*Hierarchy, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfiguration, name, err)
	}

	b := MakeBuilder().
		WithBackingLatency(c.BackingLatency).
		WithAddressSpace(uint64(c.AddressSpace))

	for _, l := range c.Levels {
		b = b.WithLevel(cache.Config{
			Name:          l.Name,
			LineSize:      int(c.LineSize),
			Capacity:      int(l.Capacity),
			Associativity: l.Associativity,
			Latency:       l.Latency,
		})
	}

	if c.MainMemory != nil {
		b = b.WithMainMemory(c.MainMemory.Latency)
	}

	for _, opt := range opts {
		b = opt(b)
	}

	return b.Build(name)
}
