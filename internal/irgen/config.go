package irgen

import "cc16/internal/layout"

// Config holds generator tunables.
type Config struct {
	// LocalAggregateThreshold is the largest number of constant leaves a
	// local aggregate initializer may have before it is moved to the data
	// segment and copied with __builtin_memcpy.
	LocalAggregateThreshold int
	// LocalStringThreshold is the longest string that initializes a local
	// char array with inline byte stores.
	LocalStringThreshold int
	// MaxNestingDepth bounds expression and statement recursion.
	MaxNestingDepth int
	Target          layout.Target
}

const (
	DefaultLocalAggregateThreshold = 3
	DefaultLocalStringThreshold    = 1
	DefaultMaxNestingDepth         = 256
)

func DefaultConfig() Config {
	return Config{
		LocalAggregateThreshold: DefaultLocalAggregateThreshold,
		LocalStringThreshold:    DefaultLocalStringThreshold,
		MaxNestingDepth:         DefaultMaxNestingDepth,
		Target:                  layout.I8086(),
	}
}

func (c Config) normalized() Config {
	if c.MaxNestingDepth <= 0 {
		c.MaxNestingDepth = DefaultMaxNestingDepth
	}
	if c.Target.PtrSize == 0 {
		c.Target = layout.I8086()
	}
	return c
}
