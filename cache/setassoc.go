package cache

// setAssocStore is a flat array of sets*ways tag words plus, for LRU, a
// parallel array of priorities. It is the tag store used whenever the
// geometry does not qualify for the fully-associative variant.
type setAssocStore struct {
	sets, ways int
	policy     Policy

	tags     []uint64
	priority []int // only populated/meaningful when policy == LRU

	lfsr *lfsr32
}

func newSetAssocStore(cfg Config) *setAssocStore {
	s := &setAssocStore{
		sets:   cfg.Sets,
		ways:   cfg.Ways,
		policy: cfg.Policy,
		tags:   make([]uint64, cfg.Sets*cfg.Ways),
		lfsr:   newLFSR32(),
	}
	if s.policy == LRU {
		s.priority = make([]int, cfg.Sets*cfg.Ways)
	}
	return s
}

func (s *setAssocStore) setBase(blockAddr uint64) int {
	setIdx := int(blockAddr & uint64(s.sets-1))
	return setIdx * s.ways
}

func (s *setAssocStore) CheckTag(blockAddr uint64) (uint64, bool) {
	base := s.setBase(blockAddr)
	tagWord := blockAddr | validBit

	for i := 0; i < s.ways; i++ {
		if s.tags[base+i]&^dirtyBit == tagWord {
			if s.policy == LRU {
				s.touchLRU(base, i)
			}
			return s.tags[base+i], true
		}
	}
	return 0, false
}

// touchLRU marks way i as most-recently-used within the set starting at
// base, aging every other slot whose priority was strictly lower.
func (s *setAssocStore) touchLRU(base, i int) {
	prev := s.priority[base+i]
	for j := 0; j < s.ways; j++ {
		if s.priority[base+j] < prev {
			s.priority[base+j]++
		}
	}
	s.priority[base+i] = 0
}

func (s *setAssocStore) Victimize(blockAddr uint64) uint64 {
	base := s.setBase(blockAddr)
	tagWord := blockAddr | validBit
	for i := 0; i < s.ways; i++ {
		if s.tags[base+i]&^dirtyBit == tagWord {
			panic(newInvariantViolation("duplicate tag on install: " +
				"blockAddr already resident, caller should have hit"))
		}
	}

	var victim uint64
	var chosen int

	if s.policy == LRU {
		maxPriority := 0
		maxIdx := base
		for i := 0; i < s.ways; i++ {
			s.priority[base+i]++
			if s.priority[base+i] > maxPriority {
				maxPriority = s.priority[base+i]
				maxIdx = base + i
			}
		}
		chosen = maxIdx
		s.priority[chosen] = 0
	} else {
		way := int(s.lfsr.next() % uint32(s.ways))
		chosen = base + way
	}

	victim = s.tags[chosen]
	s.tags[chosen] = blockAddr | validBit
	return victim
}

func (s *setAssocStore) MarkDirty(blockAddr uint64) {
	base := s.setBase(blockAddr)
	tagWord := blockAddr | validBit
	for i := 0; i < s.ways; i++ {
		if s.tags[base+i]&^dirtyBit == tagWord {
			s.tags[base+i] |= dirtyBit
			return
		}
	}
}

func (s *setAssocStore) Occupied() int {
	n := 0
	for _, t := range s.tags {
		if t&validBit != 0 {
			n++
		}
	}
	return n
}

func (s *setAssocStore) clone() tagStore {
	c := &setAssocStore{
		sets:   s.sets,
		ways:   s.ways,
		policy: s.policy,
		tags:   append([]uint64(nil), s.tags...),
		lfsr:   s.lfsr.clone(),
	}
	if s.priority != nil {
		c.priority = append([]int(nil), s.priority...)
	}
	return c
}
