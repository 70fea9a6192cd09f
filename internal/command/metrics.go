package command

import "sync"

// Metrics counts dispatch outcomes.
type Metrics struct {
	mu sync.Mutex

	total             uint64
	byStatus          map[Status]uint64
	interceptorPanics uint64
}

// Snapshot is a point-in-time copy of Metrics.
type Snapshot struct {
	Total             uint64
	Delivered         uint64
	Blocked           uint64
	NoTarget          uint64
	NoHandler         uint64
	Failed            uint64
	InterceptorPanics uint64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{byStatus: make(map[Status]uint64)}
}

// Record counts one dispatch.
func (m *Metrics) Record(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.byStatus[status]++
}

// RecordInterceptorPanic counts a recovered interceptor panic.
func (m *Metrics) RecordInterceptorPanic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interceptorPanics++
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Total:             m.total,
		Delivered:         m.byStatus[StatusDelivered],
		Blocked:           m.byStatus[StatusBlocked],
		NoTarget:          m.byStatus[StatusNoTarget],
		NoHandler:         m.byStatus[StatusNoHandler],
		Failed:            m.byStatus[StatusFailed],
		InterceptorPanics: m.interceptorPanics,
	}
}

// Reset clears all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	m.byStatus = make(map[Status]uint64)
	m.interceptorPanics = 0
}
