package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/sarchlab/memhier/timing/config"
)

var _ = Describe("Config", func() {
	Describe("Default values", func() {
		It("should describe a three-level hierarchy with RAM", func() {
			c := config.DefaultConfig()
			Expect(c.LineSize).To(Equal(config.Size(64)))
			Expect(c.Levels).To(HaveLen(3))
			Expect(c.Levels[0].Capacity).To(Equal(config.Size(64 * 1024)))
			Expect(c.Levels[2].Latency).To(Equal(uint64(15)))
			Expect(c.MainMemory.Latency).To(Equal(uint64(100)))
			Expect(c.BackingLatency).To(Equal(uint64(10000)))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Size", func() {
		It("should accept numbers and human-readable strings", func() {
			var sizes []config.Size
			err := json.Unmarshal([]byte(`[4096, "64KiB", "1 MiB", "2kB"]`), &sizes)
			Expect(err).NotTo(HaveOccurred())
			Expect(sizes).To(Equal([]config.Size{4096, 64 * 1024, 1 << 20, 2000}))
		})

		It("should reject malformed sizes", func() {
			var s config.Size
			Expect(json.Unmarshal([]byte(`"lots"`), &s)).NotTo(Succeed())
			Expect(json.Unmarshal([]byte(`-1`), &s)).NotTo(Succeed())
		})

		It("should marshal to IEC strings", func() {
			data, err := json.Marshal(config.Size(64 * 1024))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(`"64 KiB"`))
		})
	})

	Describe("Validation", func() {
		It("should report every problem", func() {
			c := config.DefaultConfig()
			c.LineSize = 0
			c.AddressSpace = 0
			c.Levels[0].Name = ""

			err := c.Validate()
			Expect(err).To(HaveOccurred())
			Expect(multierr.Errors(err)).To(HaveLen(3))
		})

		It("should reject a level smaller than one line", func() {
			c := config.DefaultConfig()
			c.Levels[1].Capacity = 32
			Expect(c.Validate()).To(MatchError(ContainSubstring("levels[1]")))
		})

		It("should reject an empty level list", func() {
			c := config.DefaultConfig()
			c.Levels = nil
			Expect(c.Validate()).To(HaveOccurred())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := config.DefaultConfig()
			clone := original.Clone()

			clone.Levels[0].Latency = 7
			clone.MainMemory.Latency = 70

			Expect(original.Levels[0].Latency).To(Equal(uint64(1)))
			Expect(original.MainMemory.Latency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should save and load config", func() {
			original := config.ScenarioAConfig()
			original.Levels[0].Latency = 2

			path := filepath.Join(tempDir, "hierarchy.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"backing_latency_ns": 500}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.BackingLatency).To(Equal(uint64(500)))
			Expect(loaded.Levels).To(Equal(config.DefaultConfig().Levels))
			Expect(loaded.MainMemory).NotTo(BeNil())
		})

		It("should replace the default levels and drop RAM on null", func() {
			path := filepath.Join(tempDir, "custom.json")
			data := `{
				"levels": [{"name": "L1", "capacity": "32KiB", "latency_ns": 2}],
				"main_memory": null
			}`
			Expect(os.WriteFile(path, []byte(data), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Levels).To(Equal([]config.LevelConfig{
				{Name: "L1", Capacity: 32 * 1024, Latency: 2},
			}))
			Expect(loaded.MainMemory).To(BeNil())
		})

		It("should return error for non-existent file", func() {
			_, err := config.LoadConfig("/nonexistent/path/hierarchy.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			Expect(os.WriteFile(path, []byte("not valid json"), 0644)).To(Succeed())

			_, err := config.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
