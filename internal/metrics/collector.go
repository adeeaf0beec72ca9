// Package metrics provides in-memory statistics for gateway calls.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Outcome labels recorded per call. They mirror the gateway classification.
const (
	OutcomeOK        = "ok"
	OutcomeServer    = "server_error"
	OutcomeTransport = "transport_failure"
)

// EndpointMetrics holds aggregated metrics for a single endpoint.
type EndpointMetrics struct {
	Count             int64
	OK                int64
	ServerErrors      int64
	TransportFailures int64
	TotalTime         time.Duration
	MinTime           time.Duration
	MaxTime           time.Duration
}

// EndpointSnapshot provides computed stats from raw metrics.
type EndpointSnapshot struct {
	Endpoint          string
	Count             int64
	OK                int64
	ServerErrors      int64
	TransportFailures int64
	TotalTimeMs       int64
	AvgTimeMs         float64
	MinTimeMs         int64
	MaxTimeMs         int64
}

// Snapshot represents all call statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64
	Endpoints     []EndpointSnapshot // Sorted by endpoint name
}

// Collector aggregates in-memory call statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	endpoints map[string]*EndpointMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		endpoints: make(map[string]*EndpointMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an endpoint.
// Caller must hold write lock.
func (c *Collector) getOrCreate(endpoint string) *EndpointMetrics {
	m, ok := c.endpoints[endpoint]
	if !ok {
		m = &EndpointMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.endpoints[endpoint] = m
	}
	return m
}

// RecordCall records the duration and outcome of one gateway call.
// Unknown outcome labels are counted but not attributed.
func (c *Collector) RecordCall(endpoint, outcome string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(endpoint)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}

	switch outcome {
	case OutcomeOK:
		m.OK++
	case OutcomeServer:
		m.ServerErrors++
	case OutcomeTransport:
		m.TransportFailures++
	}
}

// snapshotEndpoint creates a snapshot for an endpoint, returning nil if no data.
func snapshotEndpoint(name string, m *EndpointMetrics) *EndpointSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &EndpointSnapshot{
		Endpoint:          name,
		Count:             m.Count,
		OK:                m.OK,
		ServerErrors:      m.ServerErrors,
		TransportFailures: m.TransportFailures,
		TotalTimeMs:       m.TotalTime.Milliseconds(),
		AvgTimeMs:         float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:         m.MinTime.Milliseconds(),
		MaxTimeMs:         m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{UptimeSeconds: time.Since(c.startTime).Seconds()}
	for name, m := range c.endpoints {
		if s := snapshotEndpoint(name, m); s != nil {
			snap.Endpoints = append(snap.Endpoints, *s)
		}
	}
	sort.Slice(snap.Endpoints, func(i, j int) bool {
		return snap.Endpoints[i].Endpoint < snap.Endpoints[j].Endpoint
	})
	return snap
}
