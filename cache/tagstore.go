package cache

// Flag bits packed into the top of each 64-bit tag word. The remaining 62
// bits hold the block address (the address shifted right by index_bits).
const (
	validBit uint64 = 1 << 63
	dirtyBit uint64 = 1 << 62
	flagMask uint64 = validBit | dirtyBit
)

// tagStore is the tagged variant described by the engine's design notes:
// one implementation per associativity shape, dispatching on replacement
// policy internally rather than branching on it in the access engine.
// CheckTag and Victimize both operate on block addresses (addr >>
// index_bits), not raw byte addresses.
type tagStore interface {
	// CheckTag reports the encoded tag word for blockAddr and whether it
	// is currently a hit. A hit also applies any LRU bookkeeping for the
	// matched slot.
	CheckTag(blockAddr uint64) (value uint64, hit bool)

	// Victimize selects a slot for blockAddr, evicts whatever it held,
	// installs blockAddr as VALID (not DIRTY), and returns the encoded
	// value that was evicted (zero/invalid if the slot was empty).
	Victimize(blockAddr uint64) (evicted uint64)

	// MarkDirty sets the DIRTY bit on the slot holding blockAddr. The
	// caller must only call this after a hit or an install for blockAddr.
	MarkDirty(blockAddr uint64)

	// Occupied returns the number of currently valid slots.
	Occupied() int

	clone() tagStore
}

func newTagStore(cfg Config) tagStore {
	if cfg.FullyAssociative() {
		return newFullAssocStore(cfg)
	}
	return newSetAssocStore(cfg)
}
