// Package telemetry records HTTP and clinic operation metrics in process and
// serves them in the Prometheus text exposition format.
package telemetry

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Alkashi1618/projet8-clinique-securisee/internal/platform/gateway"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
}

// PoolStats reports database pool occupancy at scrape time.
type PoolStats func() (acquired, idle, total int32)

var defaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// ---------------------------------------------------------------------------
// Histogram
// ---------------------------------------------------------------------------

// histogram keeps non-cumulative bucket counts; export makes them cumulative.
type histogram struct {
	boundaries []float64
	mu         sync.Mutex
	buckets    []int64
	count      int64
	sum        uint64 // math.Float64bits
}

func newHistogram(boundaries []float64) *histogram {
	return &histogram{boundaries: boundaries, buckets: make([]int64, len(boundaries))}
}

func (h *histogram) Observe(v float64) {
	atomic.AddInt64(&h.count, 1)
	for {
		old := atomic.LoadUint64(&h.sum)
		next := math.Float64bits(math.Float64frombits(old) + v)
		if atomic.CompareAndSwapUint64(&h.sum, old, next) {
			break
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, b := range h.boundaries {
		if v <= b {
			h.buckets[i]++
			return
		}
	}
}

func (h *histogram) Count() int64 {
	return atomic.LoadInt64(&h.count)
}

func (h *histogram) Sum() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.sum))
}

func (h *histogram) cumulative() []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int64, len(h.buckets))
	var running int64
	for i, c := range h.buckets {
		running += c
		out[i] = running
	}
	return out
}

// ---------------------------------------------------------------------------
// Provider
// ---------------------------------------------------------------------------

// Provider owns every metric of the process. The zero value is not usable;
// call NewProvider.
type Provider struct {
	cfg    Config
	pool   PoolStats
	active int64

	mu         sync.RWMutex
	durations  map[string]*histogram // method|route|status
	operations map[string]int64      // resource|operation|outcome
}

func NewProvider(cfg Config) *Provider {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "clinic-server"
	}
	return &Provider{
		cfg:        cfg,
		durations:  make(map[string]*histogram),
		operations: make(map[string]int64),
	}
}

// WithPoolStats attaches a pool occupancy source to the exposition.
func (p *Provider) WithPoolStats(fn PoolStats) *Provider {
	p.pool = fn
	return p
}

// LabelsKey builds the map key of a duration histogram.
func LabelsKey(method, route, status string) string {
	return method + "|" + route + "|" + status
}

func (p *Provider) observe(key string, seconds float64) {
	p.mu.RLock()
	h, ok := p.durations[key]
	p.mu.RUnlock()
	if !ok {
		p.mu.Lock()
		if h, ok = p.durations[key]; !ok {
			h = newHistogram(defaultDurationBuckets)
			p.durations[key] = h
		}
		p.mu.Unlock()
	}
	h.Observe(seconds)
}

// CountOperation increments clinic_operation_count for one guarded call.
func (p *Provider) CountOperation(resource, operation string, failed bool) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	p.mu.Lock()
	p.operations[resource+"|"+operation+"|"+outcome]++
	p.mu.Unlock()
}

// Operations returns the counter for resource, operation and outcome.
func (p *Provider) Operations(resource, operation, outcome string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.operations[resource+"|"+operation+"|"+outcome]
}

// Duration returns the histogram recorded under key, or nil.
func (p *Provider) Duration(key string) *histogram {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.durations[key]
}

func (p *Provider) Active() int64 {
	return atomic.LoadInt64(&p.active)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// Middleware records request duration by route pattern. Requests that went
// through an authorization guard also count as clinic operations, keyed by
// the resource and operation the guard stored on the context.
func (p *Provider) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.cfg.Enabled {
				return next(c)
			}
			atomic.AddInt64(&p.active, 1)
			start := time.Now()

			err := next(c)

			atomic.AddInt64(&p.active, -1)
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				// The error handler has not run yet.
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			p.observe(LabelsKey(c.Request().Method, route, strconv.Itoa(status)), time.Since(start).Seconds())

			resource, _ := c.Get("resource").(string)
			operation, _ := c.Get("operation").(string)
			if resource != "" && operation != "" {
				p.CountOperation(resource, operation, status >= http.StatusBadRequest)
			}
			return err
		}
	}
}

func statusOf(err error) int {
	status, _, _ := gateway.Translate(err)
	return status
}

// ---------------------------------------------------------------------------
// Exposition
// ---------------------------------------------------------------------------

// Handler serves all metrics in Prometheus text format.
func (p *Provider) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		var b strings.Builder

		fmt.Fprintf(&b, "# HELP clinic_build_info Build information.\n# TYPE clinic_build_info gauge\n")
		fmt.Fprintf(&b, "clinic_build_info{service=%q,version=%q} 1\n\n", p.cfg.ServiceName, p.cfg.ServiceVersion)

		b.WriteString("# HELP http_server_active_requests Number of in-flight HTTP requests.\n")
		b.WriteString("# TYPE http_server_active_requests gauge\n")
		fmt.Fprintf(&b, "http_server_active_requests %d\n\n", p.Active())

		p.mu.RLock()
		durations := make(map[string]*histogram, len(p.durations))
		for k, h := range p.durations {
			durations[k] = h
		}
		operations := make(map[string]int64, len(p.operations))
		for k, v := range p.operations {
			operations[k] = v
		}
		p.mu.RUnlock()

		const durationName = "http_server_request_duration_seconds"
		b.WriteString("# HELP " + durationName + " Duration of HTTP requests in seconds.\n")
		b.WriteString("# TYPE " + durationName + " histogram\n")
		for _, key := range sortedKeys(durations) {
			parts := strings.SplitN(key, "|", 3)
			labels := fmt.Sprintf("method=%q,route=%q,status_code=%q", parts[0], parts[1], parts[2])
			writeHistogram(&b, durationName, labels, durations[key])
		}
		b.WriteByte('\n')

		b.WriteString("# HELP clinic_operation_count Guarded API operations by resource, operation and outcome.\n")
		b.WriteString("# TYPE clinic_operation_count counter\n")
		for _, key := range sortedKeys(operations) {
			parts := strings.SplitN(key, "|", 3)
			fmt.Fprintf(&b, "clinic_operation_count{resource=%q,operation=%q,outcome=%q} %d\n",
				parts[0], parts[1], parts[2], operations[key])
		}
		b.WriteByte('\n')

		if p.pool != nil {
			acquired, idle, total := p.pool()
			for _, g := range []struct {
				name, help string
				val        int32
			}{
				{"db_pool_acquired_connections", "Connections currently in use.", acquired},
				{"db_pool_idle_connections", "Idle pooled connections.", idle},
				{"db_pool_total_connections", "All pooled connections.", total},
			} {
				fmt.Fprintf(&b, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", g.name, g.help, g.name, g.name, g.val)
			}
		}

		return c.String(http.StatusOK, b.String())
	}
}

func writeHistogram(b *strings.Builder, name, labels string, h *histogram) {
	cum := h.cumulative()
	for i, boundary := range h.boundaries {
		fmt.Fprintf(b, "%s_bucket{%s,le=\"%g\"} %d\n", name, labels, boundary, cum[i])
	}
	total := h.Count()
	fmt.Fprintf(b, "%s_bucket{%s,le=\"+Inf\"} %d\n", name, labels, total)
	fmt.Fprintf(b, "%s_sum{%s} %g\n", name, labels, h.Sum())
	fmt.Fprintf(b, "%s_count{%s} %d\n", name, labels, total)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
