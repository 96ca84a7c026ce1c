package cache

import (
	"strconv"
	"strings"
)

// Policy selects which victim is chosen on a miss. It is a small
// enumeration rather than a boolean flag so the access engine never
// branches on replacement strategy directly; the tag store dispatches
// on Policy once per operation.
type Policy int

const (
	// Random evicts a pseudo-randomly selected way, driven by the
	// cache's LFSR.
	Random Policy = iota
	// LRU evicts the least-recently-used way in the target set.
	LRU
)

func (p Policy) String() string {
	if p == LRU {
		return "lru"
	}
	return "random"
}

// WritePolicy selects how stores are propagated to the miss handler.
type WritePolicy int

const (
	// WriteBack marks the line dirty on a store and only forwards it
	// downstream when it is later evicted. This is the policy the
	// original cache simulator hard-codes.
	WriteBack WritePolicy = iota
	// WriteThrough forwards every store to the miss handler immediately,
	// in addition to whatever the local tag store records.
	WriteThrough
)

// Config is the immutable geometry of a cache node: number of sets,
// associativity, and line size, plus the replacement policy used to
// pick victims.
type Config struct {
	Sets      int
	Ways      int
	BlockSize int
	Policy    Policy
}

// IndexBits returns log2(BlockSize), the shift applied to an address to
// derive its block address.
func (c Config) IndexBits() uint {
	bits := uint(0)
	for x := c.BlockSize; x > 1; x >>= 1 {
		bits++
	}
	return bits
}

// FullyAssociative reports whether this geometry selects the
// fully-associative tag store variant: exactly one set and more than
// four ways.
func (c Config) FullyAssociative() bool {
	return c.Sets == 1 && c.Ways > 4
}

// Validate checks the geometry invariants from the configuration grammar:
// sets and block size are powers of two, block size is at least 8, and
// ways is positive.
func (c Config) Validate() error {
	if c.Sets < 1 || !isPowerOfTwo(c.Sets) {
		return newConfigError(c.String(), "sets must be a power of two >= 1")
	}
	if c.Ways < 1 {
		return newConfigError(c.String(), "ways must be >= 1")
	}
	if c.BlockSize < 8 || !isPowerOfTwo(c.BlockSize) {
		return newConfigError(c.String(), "blocksize must be a power of two >= 8")
	}
	return nil
}

// String renders the configuration back into the sets:ways:blocksize[:lru]
// grammar it was parsed from (or would parse from).
func (c Config) String() string {
	s := strconv.Itoa(c.Sets) + ":" + strconv.Itoa(c.Ways) + ":" + strconv.Itoa(c.BlockSize)
	if c.Policy == LRU {
		s += ":lru"
	}
	return s
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// ParseConfig decodes the "sets:ways:blocksize[:lru]" grammar described in
// the cache configuration spec. Three or four colon-separated fields are
// accepted; a fourth field, if present, must be the literal "lru" or
// parsing fails. The returned Config is also validated before being
// handed back, so a caller never receives an out-of-range geometry.
func ParseConfig(s string) (Config, error) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 && len(fields) != 4 {
		return Config{}, newConfigError(s, "expected 3 or 4 colon-separated fields")
	}

	sets, err := strconv.Atoi(fields[0])
	if err != nil {
		return Config{}, newConfigError(s, "sets is not an integer")
	}
	ways, err := strconv.Atoi(fields[1])
	if err != nil {
		return Config{}, newConfigError(s, "ways is not an integer")
	}
	blockSize, err := strconv.Atoi(fields[2])
	if err != nil {
		return Config{}, newConfigError(s, "blocksize is not an integer")
	}

	policy := Random
	if len(fields) == 4 {
		if fields[3] != "lru" {
			return Config{}, newConfigError(s, `trailing field must be the literal "lru"`)
		}
		policy = LRU
	}

	cfg := Config{Sets: sets, Ways: ways, BlockSize: blockSize, Policy: policy}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
