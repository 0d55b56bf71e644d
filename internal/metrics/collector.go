// Package metrics provides a lightweight, Prometheus-compatible request
// counter collector. It outputs text/plain in Prometheus exposition format
// without requiring the heavy prometheus/client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tallies HTTP responses and webhook ingestion outcomes. Counters
// live in memory only and reset on process restart.
type Collector struct {
	startTime time.Time

	mu             sync.Mutex
	httpRequests   map[httpKey]*counter
	webhookResults map[string]*counter
}

type httpKey struct {
	path   string
	status int
}

type counter struct {
	value atomic.Int64
}

func (c *counter) inc() { c.value.Add(1) }

// New creates an empty collector.
func New() *Collector {
	return &Collector{
		startTime:      time.Now(),
		httpRequests:   make(map[httpKey]*counter),
		webhookResults: make(map[string]*counter),
	}
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// ObserveHTTPRequest counts one HTTP response for a (path, status) pair.
func (c *Collector) ObserveHTTPRequest(path string, status int) {
	key := httpKey{path: path, status: status}
	c.mu.Lock()
	ctr, ok := c.httpRequests[key]
	if !ok {
		ctr = &counter{}
		c.httpRequests[key] = ctr
	}
	c.mu.Unlock()
	ctr.inc()
}

// ObserveWebhookResult counts one ingestion outcome
// (created, duplicate, invalid_signature, validation_error).
func (c *Collector) ObserveWebhookResult(result string) {
	c.mu.Lock()
	ctr, ok := c.webhookResults[result]
	if !ok {
		ctr = &counter{}
		c.webhookResults[result] = ctr
	}
	c.mu.Unlock()
	ctr.inc()
}

// Render produces the Prometheus text exposition. Series within a family are
// sorted so repeated scrapes over unchanged counters are byte-identical.
func (c *Collector) Render() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# HELP inboxd_uptime_seconds Time since start in seconds\n")
	fmt.Fprintf(&sb, "# TYPE inboxd_uptime_seconds gauge\n")
	fmt.Fprintf(&sb, "inboxd_uptime_seconds %d\n", int64(c.Uptime().Seconds()))

	c.mu.Lock()
	httpKeys := make([]httpKey, 0, len(c.httpRequests))
	for k := range c.httpRequests {
		httpKeys = append(httpKeys, k)
	}
	results := make([]string, 0, len(c.webhookResults))
	for r := range c.webhookResults {
		results = append(results, r)
	}
	c.mu.Unlock()

	sort.Slice(httpKeys, func(i, j int) bool {
		if httpKeys[i].path != httpKeys[j].path {
			return httpKeys[i].path < httpKeys[j].path
		}
		return httpKeys[i].status < httpKeys[j].status
	})
	sort.Strings(results)

	sb.WriteString("# HELP http_requests_total Total number of HTTP requests.\n")
	sb.WriteString("# TYPE http_requests_total counter\n")
	for _, k := range httpKeys {
		c.mu.Lock()
		v := c.httpRequests[k].value.Load()
		c.mu.Unlock()
		fmt.Fprintf(&sb, "http_requests_total{path=%q,status=\"%d\"} %d\n", k.path, k.status, v)
	}

	sb.WriteString("# HELP webhook_requests_total Total number of webhook processing outcomes.\n")
	sb.WriteString("# TYPE webhook_requests_total counter\n")
	for _, r := range results {
		c.mu.Lock()
		v := c.webhookResults[r].value.Load()
		c.mu.Unlock()
		fmt.Fprintf(&sb, "webhook_requests_total{result=%q} %d\n", r, v)
	}

	return sb.String()
}

// Handler serves the exposition over HTTP.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		fmt.Fprint(w, c.Render())
	}
}
