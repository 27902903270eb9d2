// Package metrics aggregates in-process counters for the parsing pipeline.
// Everything is held in memory and reset on restart; persistence of
// long-term quality signals is the feedback store's job.
package metrics

import (
	"encoding/json"
	"sync"
	"time"
)

// institutionStats accumulates per-institution counters. Sums are kept raw
// so averages are computed once, at snapshot time.
type institutionStats struct {
	documents     int
	extractions   int
	fallbacks     int
	confidenceSum float64
	latencySum    time.Duration
	fieldsSum     int
}

// Aggregator collects pipeline counters. Safe for concurrent use.
type Aggregator struct {
	mu            sync.Mutex
	startedAt     time.Time
	documents     int
	failures      int
	byInstitution map[string]*institutionStats
	byExtractor   map[string]int
	mlOverrides   int
	cacheStats    func() (hits, misses int64)
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		startedAt:     time.Now(),
		byInstitution: make(map[string]*institutionStats),
		byExtractor:   make(map[string]int),
	}
}

// SetCacheStatsSource wires the detection cache's counters into snapshots.
// The cache keeps its own counters; snapshots read them through this hook so
// the exported document carries both sets.
func (a *Aggregator) SetCacheStatsSource(source func() (hits, misses int64)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cacheStats = source
}

// Observation is one processed document's worth of counters.
type Observation struct {
	Institution     string
	ExtractorType   string
	Confidence      float64
	Latency         time.Duration
	FieldsExtracted int
	UsedFallback    bool
	MLOverride      bool
	Failed          bool
}

// Record folds one observation into the aggregate.
func (a *Aggregator) Record(obs Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.documents++
	if obs.Failed {
		a.failures++
	}
	if obs.MLOverride {
		a.mlOverrides++
	}
	if obs.ExtractorType != "" {
		a.byExtractor[obs.ExtractorType]++
	}

	key := obs.Institution
	if key == "" {
		key = "unknown"
	}
	stats := a.byInstitution[key]
	if stats == nil {
		stats = &institutionStats{}
		a.byInstitution[key] = stats
	}
	stats.documents++
	if !obs.Failed {
		stats.extractions++
	}
	if obs.UsedFallback {
		stats.fallbacks++
	}
	stats.confidenceSum += obs.Confidence
	stats.latencySum += obs.Latency
	stats.fieldsSum += obs.FieldsExtracted
}

// InstitutionSnapshot is the externally visible per-institution summary.
type InstitutionSnapshot struct {
	Documents     int     `json:"documents"`
	Extractions   int     `json:"extractions"`
	Fallbacks     int     `json:"fallbacks"`
	AvgConfidence float64 `json:"avg_confidence"`
	AvgLatencyMS  float64 `json:"avg_latency_ms"`
	AvgFields     float64 `json:"avg_fields"`
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	UptimeSeconds float64                        `json:"uptime_seconds"`
	Documents     int                            `json:"documents"`
	Failures      int                            `json:"failures"`
	MLOverrides   int                            `json:"ml_overrides"`
	CacheHits     int64                          `json:"cache_hits"`
	CacheMisses   int64                          `json:"cache_misses"`
	ByInstitution map[string]InstitutionSnapshot `json:"by_institution"`
	ByExtractor   map[string]int                 `json:"by_extractor"`
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(a.startedAt).Seconds(),
		Documents:     a.documents,
		Failures:      a.failures,
		MLOverrides:   a.mlOverrides,
		ByInstitution: make(map[string]InstitutionSnapshot, len(a.byInstitution)),
		ByExtractor:   make(map[string]int, len(a.byExtractor)),
	}
	if a.cacheStats != nil {
		snap.CacheHits, snap.CacheMisses = a.cacheStats()
	}
	for key, stats := range a.byInstitution {
		n := float64(stats.documents)
		snap.ByInstitution[key] = InstitutionSnapshot{
			Documents:     stats.documents,
			Extractions:   stats.extractions,
			Fallbacks:     stats.fallbacks,
			AvgConfidence: stats.confidenceSum / n,
			AvgLatencyMS:  float64(stats.latencySum.Milliseconds()) / n,
			AvgFields:     float64(stats.fieldsSum) / n,
		}
	}
	for key, count := range a.byExtractor {
		snap.ByExtractor[key] = count
	}
	return snap
}

// ExportJSON renders the current snapshot as indented JSON.
func (a *Aggregator) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(a.Snapshot(), "", "  ")
}

// Reset zeroes every counter and restarts the uptime clock.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.startedAt = time.Now()
	a.documents = 0
	a.failures = 0
	a.mlOverrides = 0
	a.byInstitution = make(map[string]*institutionStats)
	a.byExtractor = make(map[string]int)
}
