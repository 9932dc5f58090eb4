// Package telemetry provides operational counters for the search pipeline.
// All telemetry data is held in memory and exposed for diagnostics - there
// is no external reporting.
package telemetry

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Event names recorded by the search pipeline.
const (
	EventAPIRequest        = "api_request"
	EventSearch            = "search"
	EventStreamSearch      = "stream_search"
	EventStreamCancelled   = "stream_cancelled"
	EventQueryParseFailure = "query_parse_failure"
	// EventRepoNotFoundForFile is recorded when a returned file references
	// a repository that cannot be resolved and the file is skipped.
	EventRepoNotFoundForFile = "repo_not_found_for_file"
)

// recentCapacity bounds the per-event recent sample buffer.
const recentCapacity = 128

// Sample is one recorded occurrence of an event.
type Sample struct {
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Recorder accumulates event counters and a bounded buffer of recent
// samples per event. Safe for concurrent use.
type Recorder struct {
	mu       sync.RWMutex
	counters map[string]uint64
	recent   *lru.Cache[string, []Sample]
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	// Error only occurs for non-positive sizes.
	recent, _ := lru.New[string, []Sample](recentCapacity)
	return &Recorder{
		counters: make(map[string]uint64),
		recent:   recent,
	}
}

// Record increments the counter for event and remembers the sample fields.
func (r *Recorder) Record(event string, fields map[string]string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[event]++

	samples, _ := r.recent.Get(event)
	samples = append(samples, Sample{Timestamp: time.Now(), Fields: fields})
	if len(samples) > recentCapacity {
		samples = samples[len(samples)-recentCapacity:]
	}
	r.recent.Add(event, samples)
}

// Count returns the number of times event has been recorded.
func (r *Recorder) Count(event string) uint64 {
	if r == nil {
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[event]
}

// Recent returns the recent samples for event, oldest first.
func (r *Recorder) Recent(event string) []Sample {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	samples, _ := r.recent.Get(event)
	out := make([]Sample, len(samples))
	copy(out, samples)
	return out
}

// Snapshot returns a copy of all counters.
func (r *Recorder) Snapshot() map[string]uint64 {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]uint64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}
