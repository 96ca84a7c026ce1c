// Package cache implements a configurable set-associative or
// fully-associative write-back/write-through cache node for simulating
// the hit/miss, eviction, and traffic behavior of a hardware CPU cache
// hierarchy driven by a stream of memory accesses.
package cache

import (
	"fmt"
	"os"

	"github.com/rs/xid"
)

// MissHandler is the downstream collaborator a Cache forwards writebacks
// and fills to. A Cache satisfies this interface itself, so caches chain
// directly: the upstream cache's Access call does not return until every
// downstream Access it triggers has returned.
type MissHandler interface {
	Access(addr, bytes uint64, isStore bool)
}

// AccessKind distinguishes how an access reached the cache, matching the
// fetch/load/store distinction the upstream memory-tracer dispatcher
// makes before routing to an instruction or data cache. The dispatcher
// itself is out of scope here; AccessKind and Trace exist so a caller
// building one has a single, obvious entry point.
type AccessKind int

const (
	Load AccessKind = iota
	Store
	Fetch
)

// Cache is one node in the cache tree: fixed geometry, a pluggable tag
// store, and monotonically increasing traffic counters. It is driven
// synchronously by its caller; no operation blocks, queues, or runs on
// another goroutine.
type Cache struct {
	name   string
	cfg    Config
	wp     WritePolicy
	idxBit uint
	store  tagStore

	missHandler MissHandler
	log         bool
	reporter    Reporter

	runID string

	readAccesses, readMisses   uint64
	writeAccesses, writeMisses uint64
	bytesRead, bytesWritten    uint64
	writebacks                 uint64
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithMissHandler sets the downstream cache that services fills and
// absorbs writebacks.
func WithMissHandler(h MissHandler) Option {
	return func(c *Cache) { c.missHandler = h }
}

// WithLog enables emitting one diagnostic line per miss to stderr.
func WithLog(enabled bool) Option {
	return func(c *Cache) { c.log = enabled }
}

// WithWritePolicy overrides the default write-back policy. The original
// cache simulator this engine is modeled on hard-codes write-back;
// write-through is carried here as a documented, optional variant.
func WithWritePolicy(wp WritePolicy) Option {
	return func(c *Cache) { c.wp = wp }
}

// WithReporter attaches a statistics collaborator that Close flushes the
// final snapshot to.
func WithReporter(r Reporter) Option {
	return func(c *Cache) { c.reporter = r }
}

// New constructs a Cache with the given name and geometry. It fails with
// a *ConfigError if cfg is out of range; no Cache is returned in that
// case.
func New(name string, cfg Config, opts ...Option) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Cache{
		name:   name,
		cfg:    cfg,
		wp:     WriteBack,
		idxBit: cfg.IndexBits(),
		store:  newTagStore(cfg),
		runID:  xid.New().String(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromString is a convenience constructor that parses a
// "sets:ways:blocksize[:lru]" configuration string before building the
// cache.
func NewFromString(name, config string, opts ...Option) (*Cache, error) {
	cfg, err := ParseConfig(config)
	if err != nil {
		return nil, err
	}
	return New(name, cfg, opts...)
}

// Name returns the cache's identifier, used in reports and log lines.
func (c *Cache) Name() string { return c.name }

// Config returns the cache's immutable geometry.
func (c *Cache) Config() Config { return c.cfg }

// SetMissHandler rewires the downstream collaborator after construction,
// matching the tracer's "set_miss_handler" wiring step.
func (c *Cache) SetMissHandler(h MissHandler) { c.missHandler = h }

// SetLog toggles the miss-diagnostic side channel after construction.
func (c *Cache) SetLog(enabled bool) { c.log = enabled }

// SetReporter rewires the statistics collaborator Close flushes to after
// construction, the same after-the-fact wiring SetMissHandler offers for
// the downstream cache.
func (c *Cache) SetReporter(r Reporter) { c.reporter = r }

// Access performs one memory access against this cache: hit/miss
// decision, victim selection, writeback and fill propagation to the
// miss handler, and counter updates. It never fails — every 64-bit
// address is valid input.
func (c *Cache) Access(addr, bytes uint64, isStore bool) {
	if isStore {
		c.writeAccesses++
		c.bytesWritten += bytes
	} else {
		c.readAccesses++
		c.bytesRead += bytes
	}

	blockAddr := addr >> c.idxBit

	if _, hit := c.store.CheckTag(blockAddr); hit {
		if isStore {
			c.storeHit(blockAddr)
		}
		return
	}

	if isStore {
		c.writeMisses++
	} else {
		c.readMisses++
	}
	if c.log {
		kind := "read"
		if isStore {
			kind = "write"
		}
		fmt.Fprintf(os.Stderr, "%s %s miss 0x%x\n", c.name, kind, addr)
	}

	victim := c.store.Victimize(blockAddr)
	lineBase := blockAddr << c.idxBit

	if victim&flagMask == flagMask {
		dirtyAddr := (victim &^ flagMask) << c.idxBit
		if c.missHandler != nil {
			c.missHandler.Access(dirtyAddr, uint64(c.cfg.BlockSize), true)
		}
		c.writebacks++
	}

	if c.missHandler != nil {
		c.missHandler.Access(lineBase, uint64(c.cfg.BlockSize), false)
	}

	if isStore {
		c.storeHit(blockAddr)
	}
}

// storeHit applies the store side effects of a hit (or a just-completed
// install after a miss): write-back marks the slot dirty locally,
// write-through forwards the store downstream.
func (c *Cache) storeHit(blockAddr uint64) {
	if c.wp == WriteBack {
		c.store.MarkDirty(blockAddr)
		return
	}
	if c.missHandler != nil {
		lineBase := blockAddr << c.idxBit
		c.missHandler.Access(lineBase, uint64(c.cfg.BlockSize), true)
	}
}

// Trace is a convenience wrapper for callers routing fetch/load/store
// events from an external dispatcher: Fetch and Load both count as
// reads, Store counts as a write.
func (c *Cache) Trace(addr, bytes uint64, kind AccessKind) {
	c.Access(addr, bytes, kind == Store)
}

// Stats returns a snapshot of the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Name:          c.name,
		ReadAccesses:  c.readAccesses,
		ReadMisses:    c.readMisses,
		WriteAccesses: c.writeAccesses,
		WriteMisses:   c.writeMisses,
		BytesRead:     c.bytesRead,
		BytesWritten:  c.bytesWritten,
		Writebacks:    c.writebacks,
	}
}

// Occupied returns the number of currently valid tag-store slots. It
// exists mainly so tests (and curious operators) can check Invariant 3
// from the data model: the fully-associative map never holds more than
// Ways entries.
func (c *Cache) Occupied() int { return c.store.Occupied() }

// RunID returns the short identifier stamped on this cache at
// construction. It is not part of the Stats snapshot, so reporters do
// not receive it; package report's SQLiteReporter stamps rows with its
// own run ID.
func (c *Cache) RunID() string { return c.runID }

// Close flushes the final statistics snapshot to the attached reporter,
// if any, mirroring the engine's destruction-time teardown behavior. It
// is a no-op if no access has occurred or no reporter is attached.
func (c *Cache) Close() error {
	if c.reporter == nil {
		return nil
	}
	s := c.Stats()
	if s.ReadAccesses+s.WriteAccesses == 0 {
		return nil
	}
	return c.reporter.Report(s)
}

// Clone returns an independent copy of the cache's geometry and current
// tag-store/policy state, following the original simulator's copy
// constructor: counters reset to zero, the miss handler link is dropped,
// and logging is disabled on the clone.
func (c *Cache) Clone(name string) *Cache {
	return &Cache{
		name:   name,
		cfg:    c.cfg,
		wp:     c.wp,
		idxBit: c.idxBit,
		store:  c.store.clone(),
		runID:  xid.New().String(),
	}
}
