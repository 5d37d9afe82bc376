package metrics

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// EndpointMetrics tracks metrics for a specific endpoint
type EndpointMetrics struct {
	Requests     int64
	Errors       int64
	TotalLatency int64
}

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Request metrics
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64
	TotalLatency       int64

	// Authentication metrics
	LoginAttempts  int64
	LoginSuccesses int64
	LoginFailures  int64

	// Upstream lead fetches
	LeadFetches     int64
	LeadFetchErrors int64
	LeadsFetched    int64

	// Export metrics
	Exports      int64
	ExportErrors int64
	ExportBytes  int64

	// Chat metrics
	ChatMessages int64
	ChatErrors   int64

	// WebSocket metrics
	WSConnections int64
	WSMessagesIn  int64
	WSMessagesOut int64

	EndpointMetrics map[string]*EndpointMetrics

	StartTime time.Time
}

var globalMetrics *Metrics
var once sync.Once

// Init initializes the global metrics instance
func Init() {
	once.Do(func() {
		globalMetrics = New()
	})
}

// New creates an independent metrics instance (used in tests)
func New() *Metrics {
	return &Metrics{
		StartTime:       time.Now(),
		EndpointMetrics: make(map[string]*EndpointMetrics),
	}
}

// Get returns the global metrics instance
func Get() *Metrics {
	Init()
	return globalMetrics
}

// IncrementRequests increments request counters
func (m *Metrics) IncrementRequests(success bool, latencyMs int64) {
	atomic.AddInt64(&m.TotalRequests, 1)
	atomic.AddInt64(&m.TotalLatency, latencyMs)

	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// IncrementLogin increments login counters
func (m *Metrics) IncrementLogin(success bool) {
	atomic.AddInt64(&m.LoginAttempts, 1)
	if success {
		atomic.AddInt64(&m.LoginSuccesses, 1)
	} else {
		atomic.AddInt64(&m.LoginFailures, 1)
	}
}

// IncrementLeadFetch records an upstream lead fetch and how many leads it returned
func (m *Metrics) IncrementLeadFetch(success bool, leads int) {
	atomic.AddInt64(&m.LeadFetches, 1)
	if !success {
		atomic.AddInt64(&m.LeadFetchErrors, 1)
		return
	}
	atomic.AddInt64(&m.LeadsFetched, int64(leads))
}

// IncrementExport records a CSV/XLSX export
func (m *Metrics) IncrementExport(success bool, bytes int) {
	atomic.AddInt64(&m.Exports, 1)
	if !success {
		atomic.AddInt64(&m.ExportErrors, 1)
		return
	}
	atomic.AddInt64(&m.ExportBytes, int64(bytes))
}

// IncrementChat records a relayed chat message
func (m *Metrics) IncrementChat(success bool) {
	atomic.AddInt64(&m.ChatMessages, 1)
	if !success {
		atomic.AddInt64(&m.ChatErrors, 1)
	}
}

// IncrementWSConnection increments WebSocket connection counter
func (m *Metrics) IncrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, 1)
}

// DecrementWSConnection decrements WebSocket connection counter
func (m *Metrics) DecrementWSConnection() {
	atomic.AddInt64(&m.WSConnections, -1)
}

// IncrementWSMessageIn increments WebSocket incoming message counter
func (m *Metrics) IncrementWSMessageIn() {
	atomic.AddInt64(&m.WSMessagesIn, 1)
}

// IncrementWSMessageOut increments WebSocket outgoing message counter
func (m *Metrics) IncrementWSMessageOut() {
	atomic.AddInt64(&m.WSMessagesOut, 1)
}

// TrackEndpoint tracks metrics for a specific endpoint
func (m *Metrics) TrackEndpoint(path, method string, statusCode int, latencyMs int64) {
	key := method + " " + path

	m.mu.Lock()
	defer m.mu.Unlock()

	em, exists := m.EndpointMetrics[key]
	if !exists {
		em = &EndpointMetrics{}
		m.EndpointMetrics[key] = em
	}

	em.Requests++
	em.TotalLatency += latencyMs
	if statusCode >= 400 {
		em.Errors++
	}
}

// EndpointMetricsSnapshot represents endpoint metrics in a snapshot
type EndpointMetricsSnapshot struct {
	Requests     int64   `json:"requests"`
	Errors       int64   `json:"errors"`
	ErrorRate    float64 `json:"error_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// CounterPair is a success/error counter pair
type CounterPair struct {
	Total  int64 `json:"total"`
	Errors int64 `json:"errors"`
}

// MetricsSnapshot represents a point-in-time snapshot of all metrics
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total        int64   `json:"total"`
		Successful   int64   `json:"successful"`
		Failed       int64   `json:"failed"`
		AvgLatencyMs float64 `json:"avg_latency_ms"`
	} `json:"requests"`

	Auth struct {
		LoginAttempts  int64 `json:"login_attempts"`
		LoginSuccesses int64 `json:"login_successes"`
		LoginFailures  int64 `json:"login_failures"`
	} `json:"auth"`

	LeadFetches  CounterPair `json:"lead_fetches"`
	LeadsFetched int64       `json:"leads_fetched"`
	Exports      CounterPair `json:"exports"`
	ExportBytes  int64       `json:"export_bytes"`
	Chat         CounterPair `json:"chat"`

	WebSocket struct {
		Connections int64 `json:"connections"`
		MessagesIn  int64 `json:"messages_in"`
		MessagesOut int64 `json:"messages_out"`
	} `json:"websocket"`

	System struct {
		Goroutines  int    `json:"goroutines"`
		HeapAllocMB uint64 `json:"heap_alloc_mb"`
		NumGC       uint32 `json:"num_gc"`
	} `json:"system"`

	Endpoints map[string]EndpointMetricsSnapshot `json:"endpoints,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	s := MetricsSnapshot{}
	s.UptimeSeconds = time.Since(m.StartTime).Seconds()
	s.StartTime = m.StartTime.Format(time.RFC3339)

	total := atomic.LoadInt64(&m.TotalRequests)
	s.Requests.Total = total
	s.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	s.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)
	if total > 0 {
		s.Requests.AvgLatencyMs = float64(atomic.LoadInt64(&m.TotalLatency)) / float64(total)
	}

	s.Auth.LoginAttempts = atomic.LoadInt64(&m.LoginAttempts)
	s.Auth.LoginSuccesses = atomic.LoadInt64(&m.LoginSuccesses)
	s.Auth.LoginFailures = atomic.LoadInt64(&m.LoginFailures)

	s.LeadFetches = CounterPair{Total: atomic.LoadInt64(&m.LeadFetches), Errors: atomic.LoadInt64(&m.LeadFetchErrors)}
	s.LeadsFetched = atomic.LoadInt64(&m.LeadsFetched)
	s.Exports = CounterPair{Total: atomic.LoadInt64(&m.Exports), Errors: atomic.LoadInt64(&m.ExportErrors)}
	s.ExportBytes = atomic.LoadInt64(&m.ExportBytes)
	s.Chat = CounterPair{Total: atomic.LoadInt64(&m.ChatMessages), Errors: atomic.LoadInt64(&m.ChatErrors)}

	s.WebSocket.Connections = atomic.LoadInt64(&m.WSConnections)
	s.WebSocket.MessagesIn = atomic.LoadInt64(&m.WSMessagesIn)
	s.WebSocket.MessagesOut = atomic.LoadInt64(&m.WSMessagesOut)

	s.System.Goroutines = runtime.NumGoroutine()
	s.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	s.System.NumGC = memStats.NumGC

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.EndpointMetrics) > 0 {
		s.Endpoints = make(map[string]EndpointMetricsSnapshot, len(m.EndpointMetrics))
		for k, v := range m.EndpointMetrics {
			em := EndpointMetricsSnapshot{Requests: v.Requests, Errors: v.Errors}
			if v.Requests > 0 {
				em.ErrorRate = float64(v.Errors) / float64(v.Requests) * 100
				em.AvgLatencyMs = float64(v.TotalLatency) / float64(v.Requests)
			}
			s.Endpoints[k] = em
		}
	}

	return s
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status  string `json:"status"` // "healthy", "degraded", "unhealthy"
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck represents the overall health check response
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
}

// Pinger is anything that can report connectivity (session store, Redis)
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckPingHealth pings a dependency and classifies the result by latency
func CheckPingHealth(ctx context.Context, p Pinger) HealthStatus {
	if p == nil {
		return HealthStatus{Status: "unhealthy", Message: "dependency not initialized"}
	}

	start := time.Now()
	err := p.Ping(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return HealthStatus{Status: "unhealthy", Message: err.Error(), Latency: latency}
	}
	if latency > 100 {
		return HealthStatus{Status: "degraded", Message: "high latency", Latency: latency}
	}
	return HealthStatus{Status: "healthy", Latency: latency}
}

// CheckMemoryHealth checks memory usage
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024

	if heapMB > maxHeapMB {
		return HealthStatus{Status: "unhealthy", Message: "heap memory exceeds limit"}
	}
	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{Status: "degraded", Message: "heap memory usage high"}
	}
	return HealthStatus{Status: "healthy"}
}

// DetermineOverallStatus determines overall health from component statuses
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case "unhealthy":
			return "unhealthy"
		case "degraded":
			hasDegraded = true
		}
	}

	if hasDegraded {
		return "degraded"
	}
	return "healthy"
}
