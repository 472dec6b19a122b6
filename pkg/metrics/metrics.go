package metrics

import "sync"

// Metrics tracks engine-level counters for the /metrics endpoint.
type Metrics struct {
	mu sync.RWMutex

	// Submission metrics
	SubmissionCount  int64
	NewProfileCount  int64
	RetakeCount      int64
	ValidationErrors int64

	// Consolidation metrics
	ConflictCount   int64
	DegradedCount   int64
	WriteConflicts  int64
	AverageLatency  float64 // milliseconds
	latencySamples  int64
}

var defaultMetrics = NewMetrics()

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	return defaultMetrics
}

// RecordSubmission records a processed submission and its latency in ms.
func (m *Metrics) RecordSubmission(latencyMs float64, newProfile bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SubmissionCount++
	if newProfile {
		m.NewProfileCount++
	}
	m.latencySamples++
	m.AverageLatency = (m.AverageLatency*float64(m.latencySamples-1) + latencyMs) / float64(m.latencySamples)
}

// RecordRetake records a repeat submission by the same respondent role.
func (m *Metrics) RecordRetake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RetakeCount++
}

// RecordValidationError records a rejected submission.
func (m *Metrics) RecordValidationError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ValidationErrors++
}

// RecordConflict records a detected cross-source conflict.
func (m *Metrics) RecordConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConflictCount++
}

// RecordDegraded records a consolidation that fell back to the local path.
func (m *Metrics) RecordDegraded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DegradedCount++
}

// RecordWriteConflict records an optimistic-lock collision on a profile.
func (m *Metrics) RecordWriteConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteConflicts++
}

// GetMetrics returns current metrics
func (m *Metrics) GetMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"submission_count":  m.SubmissionCount,
		"new_profile_count": m.NewProfileCount,
		"retake_count":      m.RetakeCount,
		"validation_errors": m.ValidationErrors,
		"conflict_count":    m.ConflictCount,
		"degraded_count":    m.DegradedCount,
		"write_conflicts":   m.WriteConflicts,
		"average_latency":   m.AverageLatency,
	}
}
