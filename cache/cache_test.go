package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/cache"
)

var _ = Describe("Cache", func() {
	Describe("end-to-end scenarios", func() {
		// S1: direct-mapped warmup.
		It("counts a cold hit-then-miss sequence across two sets", func() {
			c, err := cache.New("L1", cache.Config{Sets: 4, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x00, 8, false)
			c.Access(0x00, 8, false)
			c.Access(0x08, 8, false)

			stats := c.Stats()
			Expect(stats.ReadAccesses).To(Equal(uint64(3)))
			Expect(stats.ReadMisses).To(Equal(uint64(2)))
			Expect(stats.BytesRead).To(Equal(uint64(24)))
			Expect(stats.Writebacks).To(Equal(uint64(0)))
		})

		// S2: write-back dirty eviction in a direct-mapped, one-set cache.
		It("writes back a dirty victim on the second store miss", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x00, 1, true)
			c.Access(0x40, 1, true)

			stats := c.Stats()
			Expect(stats.WriteMisses).To(Equal(uint64(2)))
			Expect(stats.Writebacks).To(Equal(uint64(1)))
			Expect(stats.BytesWritten).To(Equal(uint64(2)))
		})

		// S3: LRU eviction order.
		It("evicts the least recently used block, not the most recent", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 2, BlockSize: 8, Policy: cache.LRU})
			Expect(err).NotTo(HaveOccurred())

			var handler fakeHandler
			c.SetMissHandler(&handler)

			c.Access(0x00, 8, false)
			c.Access(0x40, 8, false)
			c.Access(0x80, 8, false)

			stats := c.Stats()
			Expect(stats.ReadMisses).To(Equal(uint64(3)))
			Expect(stats.Writebacks).To(Equal(uint64(0)))

			// The third miss's fill request names the evicted block's
			// replacement, not proof of which address was evicted, so
			// assert indirectly: touching 0x40 and 0x80 again must both
			// still hit, while 0x00 must now miss again.
			c.Access(0x40, 8, false)
			c.Access(0x80, 8, false)
			Expect(c.Stats().ReadMisses).To(Equal(uint64(3)))

			c.Access(0x00, 8, false)
			Expect(c.Stats().ReadMisses).To(Equal(uint64(4)))
		})

		// S4: miss handler forwarding. The fill request carries this
		// cache's own line size, not the miss handler's — see DESIGN.md
		// for why this departs from the spec's worked S4 byte count.
		It("forwards exactly one fill request to the miss handler on a cold miss", func() {
			l1, err := cache.New("L1", cache.Config{Sets: 4, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			var l2 fakeHandler
			l1.SetMissHandler(&l2)

			l1.Access(0x100, 8, false)

			Expect(l2.calls).To(HaveLen(1))
			Expect(l2.calls[0]).To(Equal(fakeAccess{addr: 0x100, bytes: 8, isStore: false}))
		})

		// S5: a write-back store hit never reaches the miss handler.
		It("only invokes the miss handler on the initial load miss, not the store hit", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 2, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			var handler fakeHandler
			c.SetMissHandler(&handler)

			c.Access(0x00, 8, false)
			c.Access(0x00, 8, true)

			Expect(handler.calls).To(HaveLen(1))
			Expect(handler.calls[0].isStore).To(BeFalse())
		})

		// S6: fully-associative selection and bounded occupancy.
		It("selects the fully-associative store and bounds occupancy at ways", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 8, BlockSize: 16})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 9; i++ {
				c.Access(uint64(i)*16, 4, false)
			}

			Expect(c.Stats().ReadMisses).To(Equal(uint64(9)))
			Expect(c.Occupied()).To(Equal(8))
		})
	})

	Describe("invariants and round-trip behavior", func() {
		It("repeats a hit with no new miss and no eviction", func() {
			c, err := cache.New("L1", cache.Config{Sets: 4, Ways: 2, BlockSize: 16})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x1000, 4, false)
			before := c.Stats()

			c.Access(0x1000, 4, false)
			after := c.Stats()

			Expect(after.ReadMisses).To(Equal(before.ReadMisses))
			Expect(after.ReadAccesses).To(Equal(before.ReadAccesses + 1))
		})

		It("produces zero writebacks on the very first miss", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x00, 1, true)
			Expect(c.Stats().Writebacks).To(Equal(uint64(0)))
		})

		It("counts a zero-byte access as a full access", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x00, 0, false)
			Expect(c.Stats().ReadAccesses).To(Equal(uint64(1)))
			Expect(c.Stats().BytesRead).To(Equal(uint64(0)))
		})

		It("never lets read misses exceed read accesses", func() {
			c, err := cache.New("L1", cache.Config{Sets: 2, Ways: 2, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			for i := uint64(0); i < 50; i++ {
				c.Access(i*8, 8, false)
			}

			stats := c.Stats()
			Expect(stats.ReadMisses).To(BeNumerically("<=", stats.ReadAccesses))
		})

		It("never lets writebacks exceed total misses", func() {
			c, err := cache.New("L1", cache.Config{Sets: 2, Ways: 2, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			for i := uint64(0); i < 50; i++ {
				c.Access((i%5)*8, 8, i%2 == 0)
			}

			stats := c.Stats()
			Expect(stats.Writebacks).To(BeNumerically("<=", stats.ReadMisses+stats.WriteMisses))
		})

		It("never observes a call when it has no miss handler", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8})
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { c.Access(0x00, 8, true) }).NotTo(Panic())
			Expect(c.Stats().WriteAccesses).To(Equal(uint64(1)))
		})
	})

	Describe("write-through", func() {
		It("forwards every store to the miss handler, hit or miss", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8},
				cache.WithWritePolicy(cache.WriteThrough))
			Expect(err).NotTo(HaveOccurred())

			var handler fakeHandler
			c.SetMissHandler(&handler)

			c.Access(0x00, 8, true) // miss: fill + store-through
			c.Access(0x00, 8, true) // hit: store-through only

			Expect(handler.calls).To(HaveLen(3))
			Expect(handler.calls[0].isStore).To(BeFalse()) // fill
			Expect(handler.calls[1].isStore).To(BeTrue())  // store-through on miss install
			Expect(handler.calls[2].isStore).To(BeTrue())  // store-through on hit
		})
	})

	Describe("Clone", func() {
		It("copies tag-store state but resets counters and the miss handler", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 2, BlockSize: 8, Policy: cache.LRU})
			Expect(err).NotTo(HaveOccurred())

			var handler fakeHandler
			c.SetMissHandler(&handler)
			c.Access(0x00, 8, false)
			c.Access(0x40, 8, false)

			clone := c.Clone("L1-snapshot")
			Expect(clone.Stats().ReadAccesses).To(Equal(uint64(0)))

			// The cloned tag state still reports the same occupancy.
			Expect(clone.Occupied()).To(Equal(c.Occupied()))

			// Mutating the clone must not affect the original.
			clone.Access(0x80, 8, false)
			Expect(clone.Stats().ReadMisses).To(Equal(uint64(1)))
			Expect(c.Stats().ReadMisses).To(Equal(uint64(2)))

			// The clone's miss did not reach the original's miss handler,
			// which only saw the original's two fills.
			Expect(handler.calls).To(HaveLen(2))
		})
	})

	Describe("fully-associative LRU", func() {
		// Ways must exceed four for Config to select the fully-associative
		// store at all (see Config.FullyAssociative); five is the minimum.
		It("breaks a same-age tie by evicting the earliest-inserted key", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 5, BlockSize: 16, Policy: cache.LRU})
			Expect(err).NotTo(HaveOccurred())

			// Five cold misses exactly fill the store; nothing has aged
			// yet, so A through E all sit at priority zero.
			c.Access(0x00, 4, false) // A
			c.Access(0x10, 4, false) // B
			c.Access(0x20, 4, false) // C
			c.Access(0x30, 4, false) // D
			c.Access(0x40, 4, false) // E

			// A sixth distinct key forces the first eviction, an all-zero
			// tie that resolves to the earliest-inserted key (A) rather
			// than an arbitrary one.
			c.Access(0x50, 4, false) // F
			Expect(c.Occupied()).To(Equal(5))

			missesBefore := c.Stats().ReadMisses
			c.Access(0x00, 4, false) // A must miss again
			Expect(c.Stats().ReadMisses).To(Equal(missesBefore + 1))
		})

		It("spares a recently touched key from eviction", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 5, BlockSize: 16, Policy: cache.LRU})
			Expect(err).NotTo(HaveOccurred())

			c.Access(0x00, 4, false) // A
			c.Access(0x10, 4, false) // B
			c.Access(0x20, 4, false) // C
			c.Access(0x30, 4, false) // D
			c.Access(0x40, 4, false) // E
			c.Access(0x50, 4, false) // F evicts A (tie, earliest-inserted)

			// Resident set is now {B, C, D, E, F}, all aged by the
			// eviction above except F, which installed at priority zero.
			// Touching B resets it to the front of the recency order,
			// which ages F from zero to one, tying it with C, D and E;
			// the next eviction breaks that tie by insertion order (C).
			c.Access(0x10, 4, false) // B, hit

			c.Access(0x60, 4, false) // G forces another eviction
			Expect(c.Occupied()).To(Equal(5))

			missesBefore := c.Stats().ReadMisses
			c.Access(0x10, 4, false) // B must still hit
			Expect(c.Stats().ReadMisses).To(Equal(missesBefore))

			c.Access(0x20, 4, false) // C must have been evicted
			Expect(c.Stats().ReadMisses).To(Equal(missesBefore + 1))
		})
	})

	Describe("diagnostic logging", func() {
		It("does not error or panic when logging is enabled", func() {
			c, err := cache.New("L1", cache.Config{Sets: 1, Ways: 1, BlockSize: 8},
				cache.WithLog(true))
			Expect(err).NotTo(HaveOccurred())

			Expect(func() { c.Access(0x00, 8, false) }).NotTo(Panic())
		})
	})
})
