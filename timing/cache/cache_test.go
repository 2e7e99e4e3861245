package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/memhier/timing/cache"
)

var _ = Describe("Level", func() {
	var l *cache.Level

	BeforeEach(func() {
		// Fully associative: 4 lines of 64B
		l = cache.New(cache.Config{
			Name:     "L1",
			LineSize: 64,
			Capacity: 256,
			Latency:  1,
		})
	})

	Describe("Lookup", func() {
		It("should miss on an empty level", func() {
			_, ok := l.Lookup(0x1000)
			Expect(ok).To(BeFalse())

			stats := l.Stats()
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
			Expect(l.Len()).To(Equal(0))
		})

		It("should hit an inserted line", func() {
			l.Insert(0x1000, "a")

			payload, ok := l.Lookup(0x1000)
			Expect(ok).To(BeTrue())
			Expect(payload).To(Equal("a"))
			Expect(l.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should mark the line most recently used", func() {
			l.Insert(0x000, "a")
			l.Insert(0x040, "b")
			l.Lookup(0x000)

			Expect(l.Resident()).To(Equal([]uint64{0x040, 0x000}))
		})
	})

	Describe("Insert", func() {
		It("should overwrite a resident line without evicting", func() {
			l.Insert(0x000, "a")
			l.Insert(0x040, "b")

			_, evicted := l.Insert(0x000, "a2")
			Expect(evicted).To(BeFalse())
			Expect(l.Len()).To(Equal(2))
			Expect(l.Resident()).To(Equal([]uint64{0x040, 0x000}))

			payload, _ := l.Lookup(0x000)
			Expect(payload).To(Equal("a2"))
		})

		It("should never exceed its line capacity", func() {
			for i := uint64(0); i < 32; i++ {
				l.Insert(i*64, "x")
				Expect(l.Len()).To(BeNumerically("<=", 4))
			}
			Expect(l.Len()).To(Equal(4))
			Expect(l.Stats().Evictions).To(Equal(uint64(28)))
		})

		It("should evict exactly the least recently used line", func() {
			l.Insert(0x000, "a")
			l.Insert(0x040, "b")
			l.Insert(0x080, "c")
			l.Insert(0x0C0, "d")

			// Touch everything but 0x040
			l.Lookup(0x000)
			l.Lookup(0x080)
			l.Insert(0x0C0, "d2")

			evicted, ok := l.Insert(0x100, "e")
			Expect(ok).To(BeTrue())
			Expect(evicted).To(Equal(uint64(0x040)))
			Expect(l.Contains(0x040)).To(BeFalse())
			Expect(l.Resident()).To(Equal([]uint64{0x000, 0x080, 0x0C0, 0x100}))
		})
	})

	Describe("Contains", func() {
		It("should not change recency or statistics", func() {
			l.Insert(0x000, "a")
			l.Insert(0x040, "b")

			Expect(l.Contains(0x000)).To(BeTrue())
			Expect(l.Contains(0x080)).To(BeFalse())
			Expect(l.Resident()).To(Equal([]uint64{0x000, 0x040}))
			Expect(l.Stats().Hits).To(BeZero())
			Expect(l.Stats().Misses).To(BeZero())
		})
	})

	Describe("Set associativity", func() {
		BeforeEach(func() {
			// 4 lines, 2 ways -> 2 sets; even lines map to set 0
			l = cache.New(cache.Config{
				Name:          "L1",
				LineSize:      64,
				Capacity:      256,
				Associativity: 2,
				Latency:       1,
			})
		})

		It("should evict within the set only", func() {
			l.Insert(0x000, "a") // set 0
			l.Insert(0x040, "b") // set 1
			l.Insert(0x080, "c") // set 0

			evicted, ok := l.Insert(0x100, "d") // set 0
			Expect(ok).To(BeTrue())
			Expect(evicted).To(Equal(uint64(0x000)))
			Expect(l.Contains(0x040)).To(BeTrue())
		})
	})

	Describe("Large fully associative level", func() {
		const lines = 16 << 20 / 64

		BeforeEach(func() {
			l = cache.New(cache.Config{
				Name:     "L3",
				LineSize: 64,
				Capacity: 16 << 20,
				Latency:  15,
			})
			for i := uint64(0); i < lines; i++ {
				l.Insert(i*64, "")
			}
		})

		It("should evict in recency order once full", func() {
			Expect(l.Len()).To(Equal(lines))

			evicted, ok := l.Insert(lines*64, "")
			Expect(ok).To(BeTrue())
			Expect(evicted).To(Equal(uint64(0)))

			_, hit := l.Lookup(64)
			Expect(hit).To(BeTrue())

			evicted, ok = l.Insert((lines+1)*64, "")
			Expect(ok).To(BeTrue())
			Expect(evicted).To(Equal(uint64(2 * 64)))

			resident := l.Resident()
			Expect(resident).To(HaveLen(lines))
			Expect(resident[0]).To(Equal(uint64(3 * 64)))
			Expect(resident[lines-2:]).To(Equal([]uint64{64, (lines + 1) * 64}))
			Expect(l.Stats().Evictions).To(Equal(uint64(2)))
		})
	})

	Describe("Flush and ResetStats", func() {
		It("should drop lines but keep statistics on flush", func() {
			l.Insert(0x000, "a")
			l.Lookup(0x000)
			l.Flush()

			Expect(l.Len()).To(Equal(0))
			Expect(l.Stats().Hits).To(Equal(uint64(1)))
		})

		It("should clear statistics but keep lines on reset", func() {
			l.Insert(0x000, "a")
			l.Lookup(0x000)
			l.ResetStats()

			Expect(l.Contains(0x000)).To(BeTrue())
			Expect(l.Stats()).To(Equal(cache.Statistics{}))
		})
	})

	Describe("Config validation", func() {
		It("should accept a one-line level", func() {
			c := cache.Config{Name: "L1", LineSize: 64, Capacity: 64}
			Expect(c.Validate()).To(Succeed())
			Expect(c.NumLines()).To(Equal(1))
		})

		It("should reject a level smaller than one line", func() {
			c := cache.Config{Name: "L1", LineSize: 64, Capacity: 32}
			Expect(c.Validate()).To(MatchError(ContainSubstring("smaller than one")))
		})

		It("should reject ways that do not divide the lines", func() {
			c := cache.Config{Name: "L1", LineSize: 64, Capacity: 384, Associativity: 4}
			Expect(c.Validate()).To(HaveOccurred())
		})
	})
})

var _ = Describe("BackingStore", func() {
	var (
		mockCtrl *gomock.Controller
		source   *MockSource
		store    *cache.BackingStore
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		source = NewMockSource(mockCtrl)
		store = cache.NewBackingStore(100, source)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should materialize a line once and return it on every load", func() {
		source.EXPECT().Materialize(uint64(0x1000)).Return("first").Times(1)

		Expect(store.Load(0x1000)).To(Equal("first"))
		Expect(store.Load(0x1000)).To(Equal("first"))
		Expect(store.Loads()).To(Equal(uint64(2)))
		Expect(store.Materialized()).To(Equal(1))
	})

	It("should keep materialized lines across stats resets", func() {
		source.EXPECT().Materialize(uint64(0x40)).Return("x")

		store.Load(0x40)
		store.ResetStats()

		Expect(store.Loads()).To(BeZero())
		Expect(store.Load(0x40)).To(Equal("x"))
	})

	It("should use placeholders by default", func() {
		s := cache.NewBackingStore(100, nil)
		Expect(s.Load(0x1000)).To(Equal("data_0x1000"))
		Expect(s.Latency()).To(Equal(uint64(100)))
	})
})

var _ = Describe("MainMemory", func() {
	It("should count hits and misses", func() {
		m := cache.NewMainMemory(50)

		_, ok := m.Lookup(0x40)
		Expect(ok).To(BeFalse())

		m.Insert(0x40, "x")
		payload, ok := m.Lookup(0x40)
		Expect(ok).To(BeTrue())
		Expect(payload).To(Equal("x"))

		Expect(m.Hits()).To(Equal(uint64(1)))
		Expect(m.Misses()).To(Equal(uint64(1)))

		m.Flush()
		Expect(m.Len()).To(BeZero())
	})
})
