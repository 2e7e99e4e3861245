// Package monitor serves a hierarchy's state over HTTP so that a running
// simulation can be inspected and driven from a browser or curl.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/memhier/timing/cache"
	"github.com/sarchlab/memhier/timing/hierarchy"
	"github.com/sarchlab/memhier/tracing"
)

// TraceCapacity is the number of recent access records a monitor keeps for
// /api/trace.
const TraceCapacity = 10000

// Monitor exposes one hierarchy. Every handler touching the hierarchy holds
// the monitor's lock, so reads are never interleaved.
type Monitor struct {
	mu        sync.Mutex
	hierarchy *hierarchy.Hierarchy
	trace     *tracing.MemoryWriter

	portNumber int
	log        *logrus.Logger
}

// NewMonitor creates a monitor and attaches an in-memory tracer, holding the
// last TraceCapacity reads, to the hierarchy.
func NewMonitor(h *hierarchy.Hierarchy) *Monitor {
	m := &Monitor{
		hierarchy: h,
		trace:     tracing.NewBoundedMemoryWriter(TraceCapacity),
		log:       logrus.StandardLogger(),
	}

	h.AcceptHook(tracing.NewTracer(m.trace))

	return m
}

// WithPortNumber sets the port to listen on. Ports below 1000 are refused
// and a random port is used instead.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.log.Warnf("Port number %d is not allowed for the monitoring server, "+
			"using a random port instead", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger used for server messages.
func (m *Monitor) WithLogger(logger *logrus.Logger) *Monitor {
	m.log = logger
	return m
}

// Handler returns the HTTP routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/levels", m.listLevels).Methods(http.MethodGet)
	r.HandleFunc("/api/level/{name}", m.levelDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/trace", m.listTrace).Methods(http.MethodGet)
	r.HandleFunc("/api/read/{addr}", m.read).Methods(http.MethodPost)
	r.HandleFunc("/api/flush", m.flush).Methods(http.MethodPost)
	r.HandleFunc("/api/reset", m.reset).Methods(http.MethodPost)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	return r
}

// Listen opens the listening socket.
func (m *Monitor) Listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to start monitoring server: %w", err)
	}

	return listener, nil
}

// Serve handles requests on the listener until ctx is done.
func (m *Monitor) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(os.Stderr, "Monitoring %s with http://localhost:%d\n",
		m.hierarchy.Name(), listener.Addr().(*net.TCPAddr).Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	stats := m.hierarchy.Stats()
	m.mu.Unlock()

	m.writeJSON(w, stats)
}

type levelRsp struct {
	Name          string `json:"name"`
	LineSize      int    `json:"line_size"`
	Capacity      int    `json:"capacity"`
	Lines         int    `json:"lines"`
	Associativity int    `json:"associativity"`
	Latency       uint64 `json:"latency_ns"`
	Resident      int    `json:"resident"`
}

func (m *Monitor) listLevels(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rsp := make([]levelRsp, 0, len(m.hierarchy.Levels()))
	for _, c := range m.hierarchy.Levels() {
		l, _ := m.hierarchy.Level(c.Name)
		rsp = append(rsp, levelRsp{
			Name:          c.Name,
			LineSize:      c.LineSize,
			Capacity:      c.Capacity,
			Lines:         c.NumLines(),
			Associativity: c.Associativity,
			Latency:       c.Latency,
			Resident:      l.Len(),
		})
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) levelDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.mu.Lock()
	defer m.mu.Unlock()

	var root any
	switch name {
	case cache.RAMName:
		if mem := m.hierarchy.MainMemory(); mem != nil {
			root = mem
		}
	case cache.BackingStoreName:
		root = m.hierarchy.BackingStore()
	default:
		if l, ok := m.hierarchy.Level(name); ok {
			root = l
		}
	}

	if root == nil {
		http.Error(w, fmt.Sprintf("level %s not found", name), http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(root)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.log.WithError(err).Error("failed to serialize level")
	}
}

func (m *Monitor) listTrace(w http.ResponseWriter, r *http.Request) {
	n := 100
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			http.Error(w, fmt.Sprintf("invalid record count %q", s), http.StatusBadRequest)
			return
		}
		n = v
	}

	m.writeJSON(w, m.trace.Last(n))
}

func (m *Monitor) read(w http.ResponseWriter, r *http.Request) {
	addr, err := hierarchy.ParseAddress(mux.Vars(r)["addr"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	result, err := m.hierarchy.Read(addr)
	m.mu.Unlock()

	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.writeJSON(w, result)
}

func (m *Monitor) flush(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.hierarchy.Flush()
	m.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) reset(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.hierarchy.ResetStats()
	m.trace.Reset()
	m.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("seconds"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			http.Error(w, fmt.Sprintf("invalid duration %q", s), http.StatusBadRequest)
			return
		}
		duration = time.Duration(v * float64(time.Second))
	}

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		m.log.WithError(err).Warn("failed to write response")
	}
}
