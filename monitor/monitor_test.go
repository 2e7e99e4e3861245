package monitor_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/memhier/monitor"
	"github.com/sarchlab/memhier/timing/config"
	"github.com/sarchlab/memhier/timing/hierarchy"
	"github.com/sarchlab/memhier/tracing"
)

var _ = Describe("Monitor", func() {
	var (
		h      *hierarchy.Hierarchy
		server *httptest.Server
	)

	do := func(method, path string) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, nil)
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(rsp.Body.Close)

		return rsp
	}

	decode := func(rsp *http.Response, v any) {
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(rsp.Body).Decode(v)).To(Succeed())
	}

	BeforeEach(func() {
		var err error
		h, err = hierarchy.FromConfig("monitored", config.ScenarioAConfig())
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(monitor.NewMonitor(h).Handler())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should perform a read", func() {
		var result hierarchy.Result
		decode(do(http.MethodPost, "/api/read/0x1004"), &result)

		Expect(result.LineAddress).To(Equal(uint64(0x1000)))
		Expect(result.Level).To(Equal("BackingStore"))
		Expect(result.Latency).To(Equal(uint64(119)))
		Expect(result.Payload).To(Equal("data_0x1000"))
	})

	It("should reject malformed and out-of-range addresses", func() {
		Expect(do(http.MethodPost, "/api/read/banana").StatusCode).
			To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodPost, fmt.Sprintf("/api/read/%d", uint64(1)<<32)).StatusCode).
			To(Equal(http.StatusBadRequest))
		Expect(h.Stats().TotalAccesses).To(BeZero())
	})

	It("should only accept reads over POST", func() {
		Expect(do(http.MethodGet, "/api/read/0x40").StatusCode).
			To(Equal(http.StatusMethodNotAllowed))
	})

	It("should report statistics and reset them", func() {
		do(http.MethodPost, "/api/read/0x1000")
		do(http.MethodPost, "/api/read/0x1000")

		var stats hierarchy.AccessStatistics
		decode(do(http.MethodGet, "/api/stats"), &stats)
		Expect(stats.TotalAccesses).To(Equal(uint64(2)))
		Expect(stats.TotalLatency).To(Equal(uint64(120)))

		Expect(do(http.MethodPost, "/api/reset").StatusCode).To(Equal(http.StatusNoContent))

		decode(do(http.MethodGet, "/api/stats"), &stats)
		Expect(stats.TotalAccesses).To(BeZero())
	})

	It("should list levels with their geometry", func() {
		do(http.MethodPost, "/api/read/0x1000")

		var levels []struct {
			Name     string `json:"name"`
			Lines    int    `json:"lines"`
			Resident int    `json:"resident"`
		}
		decode(do(http.MethodGet, "/api/levels"), &levels)

		Expect(levels).To(HaveLen(3))
		Expect(levels[2].Name).To(Equal("L3"))
		Expect(levels[2].Lines).To(Equal(4))
		Expect(levels[2].Resident).To(Equal(1))
	})

	It("should dump a single level", func() {
		rsp := do(http.MethodGet, "/api/level/L2")
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).NotTo(BeEmpty())

		Expect(do(http.MethodGet, "/api/level/BackingStore").StatusCode).To(Equal(http.StatusOK))
	})

	It("should 404 on unknown levels", func() {
		Expect(do(http.MethodGet, "/api/level/L9").StatusCode).To(Equal(http.StatusNotFound))
		Expect(do(http.MethodGet, "/api/level/RAM").StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should return recent trace records", func() {
		do(http.MethodPost, "/api/read/0x1000")
		do(http.MethodPost, "/api/read/0x2000")
		do(http.MethodPost, "/api/read/0x1000")

		var records []tracing.AccessRecord
		decode(do(http.MethodGet, "/api/trace?n=2"), &records)
		Expect(records).To(HaveLen(2))
		Expect(records[0].LineAddress).To(Equal(uint64(0x2000)))
		Expect(records[1].Level).To(Equal("L2"))

		Expect(do(http.MethodGet, "/api/trace?n=-1").StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("should flush the cache levels", func() {
		do(http.MethodPost, "/api/read/0x1000")
		Expect(do(http.MethodPost, "/api/flush").StatusCode).To(Equal(http.StatusNoContent))

		var result hierarchy.Result
		decode(do(http.MethodPost, "/api/read/0x1000"), &result)
		Expect(result.Level).To(Equal("BackingStore"))
	})

	It("should report process resources", func() {
		var rsp struct {
			MemorySize uint64 `json:"memory_size"`
		}
		decode(do(http.MethodGet, "/api/resource"), &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should reject a bad profile duration", func() {
		Expect(do(http.MethodGet, "/api/profile?seconds=soon").StatusCode).
			To(Equal(http.StatusBadRequest))
	})

	It("should return a CPU profile", func() {
		rsp := do(http.MethodGet, "/api/profile?seconds=0.05")
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		var prof map[string]any
		Expect(json.NewDecoder(rsp.Body).Decode(&prof)).To(Succeed())
		Expect(prof).To(HaveKey("SampleType"))
	})

	It("should stop serving when the context is cancelled", func() {
		m := monitor.NewMonitor(h).WithPortNumber(0)
		listener, err := m.Listen()
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- m.Serve(ctx, listener) }()

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
