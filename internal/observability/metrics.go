package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rlm"

// maxHistogramSamples bounds each sliding-window sampler per spec §5
// ("Histograms retain a bounded sliding window (≤1,000 samples)").
const maxHistogramSamples = 1000

// window is a bounded, not-thread-safe-by-itself sliding sample buffer;
// callers hold the owning Metrics.mu.
type window struct {
	samples []float64
	next    int
}

func newWindow() *window { return &window{samples: make([]float64, 0, maxHistogramSamples)} }

func (w *window) add(v float64) {
	if len(w.samples) < maxHistogramSamples {
		w.samples = append(w.samples, v)
		return
	}
	w.samples[w.next] = v
	w.next = (w.next + 1) % maxHistogramSamples
}

// HistogramSnapshot is the JSON shape reported per entry in spec §6.
type HistogramSnapshot struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Sum   float64 `json:"sum"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

func (w *window) snapshot() HistogramSnapshot {
	if len(w.samples) == 0 {
		return HistogramSnapshot{}
	}
	sorted := append([]float64(nil), w.samples...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	pick := func(p float64) float64 {
		idx := int(p * float64(len(sorted)-1))
		return sorted[idx]
	}
	return HistogramSnapshot{
		Count: int64(len(sorted)),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   sum / float64(len(sorted)),
		Sum:   sum,
		P50:   pick(0.50),
		P90:   pick(0.90),
		P95:   pick(0.95),
		P99:   pick(0.99),
	}
}

// Metrics wraps Prometheus collectors (for scraping) AND maintains a
// bounded in-process sliding window per histogram so Snapshot() can answer
// rlm_get_metrics without talking to a Prometheus pushgateway.
type Metrics struct {
	mu sync.Mutex

	startedAt time.Time

	counters map[string]int64
	gauges   map[string]float64
	hists    map[string]*window

	promCounters   map[string]*prometheus.CounterVec
	promHistograms map[string]prometheus.Histogram
	promGauges     map[string]prometheus.Gauge

	registry *prometheus.Registry
}

// New constructs a Metrics registry and pre-registers the named counters,
// gauges, and histograms from spec §6's snapshot shape.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		startedAt:      time.Now(),
		counters:       make(map[string]int64),
		gauges:         make(map[string]float64),
		hists:          make(map[string]*window),
		promCounters:   make(map[string]*prometheus.CounterVec),
		promHistograms: make(map[string]prometheus.Histogram),
		promGauges:     make(map[string]prometheus.Gauge),
		registry:       reg,
	}

	for _, name := range []string{
		"tool_calls_total", "contexts_loaded", "contexts_appended", "contexts_unloaded",
		"code_executions", "code_errors", "searches", "cache_hits", "cache_misses",
		"index_builds", "sessions_created", "sessions_evicted",
	} {
		cv := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: name,
		}, nil)
		reg.MustRegister(cv)
		m.promCounters[name] = cv
	}

	for _, name := range []string{"active_sessions", "total_memory_bytes", "cache_size", "index_size"} {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
		reg.MustRegister(g)
		m.promGauges[name] = g
	}

	for _, name := range []string{
		"tool_duration_ms", "search_duration_ms", "decompose_duration_ms",
		"code_execution_duration_ms", "load_context_duration_ms", "append_context_duration_ms",
	} {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: name,
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		})
		reg.MustRegister(h)
		m.promHistograms[name] = h
		m.hists[name] = newWindow()
	}

	return m
}

// Registry exposes the Prometheus registry for an HTTP scrape endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) IncCounter(name string) { m.AddCounter(name, 1) }

func (m *Metrics) AddCounter(name string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += delta
	if cv, ok := m.promCounters[name]; ok {
		cv.WithLabelValues().Add(float64(delta))
	}
}

func (m *Metrics) SetGauge(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = v
	if g, ok := m.promGauges[name]; ok {
		g.Set(v)
	}
}

func (m *Metrics) ObserveDuration(name string, d time.Duration) {
	ms := float64(d.Milliseconds())
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.hists[name]
	if !ok {
		w = newWindow()
		m.hists[name] = w
	}
	w.add(ms)
	if h, ok := m.promHistograms[name]; ok {
		h.Observe(ms)
	}
}

// Snapshot is the JSON shape from spec §6.
type Snapshot struct {
	Uptime     float64                        `json:"uptime"`
	Counters   map[string]int64                `json:"counters"`
	Gauges     map[string]float64              `json:"gauges"`
	Histograms map[string]HistogramSnapshot     `json:"histograms"`
}

func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}
	gauges := make(map[string]float64, len(m.gauges))
	for k, v := range m.gauges {
		gauges[k] = v
	}
	hists := make(map[string]HistogramSnapshot, len(m.hists))
	for k, w := range m.hists {
		hists[k] = w.snapshot()
	}

	return Snapshot{
		Uptime:     time.Since(m.startedAt).Seconds(),
		Counters:   counters,
		Gauges:     gauges,
		Histograms: hists,
	}
}
