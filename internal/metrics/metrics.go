package metrics

import (
	"sync"
	"time"
)

type storeStats struct {
	commits           int
	commitFailures    map[string]int
	committedCopies   int
	lastCommitLatency time.Duration
	basketRejections  map[string]int
	catalogLoads      int
	catalogErrors     int
}

// Recorder keeps in-memory counters for the purchase engine and mirrors them to
// OpenTelemetry instruments when telemetry is enabled.
type Recorder struct {
	mu    sync.Mutex
	stats storeStats
	otel  *otelInstruments
}

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: storeStats{
			commitFailures:   make(map[string]int),
			basketRejections: make(map[string]int),
		},
		otel: otel,
	}
}

// RecordCommit tracks one purchase commit. stage is empty for successful commits.
func (r *Recorder) RecordCommit(duration time.Duration, copies int, stage string, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.stats.lastCommitLatency = duration
	if err != nil {
		r.stats.commitFailures[stage]++
	} else {
		r.stats.commits++
		r.stats.committedCopies += copies
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCommit(duration, copies, stage, err)
	}
}

// RecordBasketRejection counts a basket mutation refused by validation.
func (r *Recorder) RecordBasketRejection(reason string) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.stats.basketRejections[reason]++
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordBasketRejection(reason)
	}
}

func (r *Recorder) RecordCatalogLoad(duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	r.stats.catalogLoads++
	if err != nil {
		r.stats.catalogErrors++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordCatalogLoad(duration, err)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// Snapshot returns a copy of the current stats.
type Snapshot struct {
	Commits           int
	CommitFailures    map[string]int
	CommittedCopies   int
	LastCommitLatency time.Duration
	BasketRejections  map[string]int
	CatalogLoads      int
	CatalogErrors     int
}

func (r *Recorder) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	failures := make(map[string]int, len(r.stats.commitFailures))
	for k, v := range r.stats.commitFailures {
		failures[k] = v
	}
	rejections := make(map[string]int, len(r.stats.basketRejections))
	for k, v := range r.stats.basketRejections {
		rejections[k] = v
	}

	return Snapshot{
		Commits:           r.stats.commits,
		CommitFailures:    failures,
		CommittedCopies:   r.stats.committedCopies,
		LastCommitLatency: r.stats.lastCommitLatency,
		BasketRejections:  rejections,
		CatalogLoads:      r.stats.catalogLoads,
		CatalogErrors:     r.stats.catalogErrors,
	}
}
