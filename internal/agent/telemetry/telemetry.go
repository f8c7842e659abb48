package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/osintlab/sleuth/config"
)

// Telemetry aggregates query, model and source metrics for the pipeline.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu      sync.RWMutex
	metrics Metrics
	costs   CostTracker
}

// Metrics holds pipeline performance counters.
type Metrics struct {
	TotalQueries      int64
	SuccessfulQueries int64
	FailedQueries     int64
	AverageQueryTime  time.Duration

	QueriesByPath map[string]int64

	LLMRequests   map[string]int64
	LLMTokensUsed map[string]int64

	SourceRequests map[string]int64
	SourceFailures map[string]int64
	SourceResults  map[string]int64
}

// CostTracker accumulates model spend.
type CostTracker struct {
	ModelCosts  map[string]float64
	TotalCost   float64
	TotalTokens int64
}

// NewTelemetry creates a telemetry instance. A disabled instance records
// nothing but stays safe to call.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		metrics: Metrics{
			QueriesByPath:  make(map[string]int64),
			LLMRequests:    make(map[string]int64),
			LLMTokensUsed:  make(map[string]int64),
			SourceRequests: make(map[string]int64),
			SourceFailures: make(map[string]int64),
			SourceResults:  make(map[string]int64),
		},
		costs: CostTracker{
			ModelCosts: make(map[string]float64),
		},
	}
}

// RecordQuery records one completed pipeline query on the given path
// ("documents", "news" or "combined").
func (t *Telemetry) RecordQuery(path string, duration time.Duration, success bool) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.TotalQueries++
	if success {
		t.metrics.SuccessfulQueries++
	} else {
		t.metrics.FailedQueries++
	}
	t.metrics.QueriesByPath[path]++

	if t.metrics.TotalQueries == 1 {
		t.metrics.AverageQueryTime = duration
	} else {
		total := t.metrics.AverageQueryTime*time.Duration(t.metrics.TotalQueries-1) + duration
		t.metrics.AverageQueryTime = total / time.Duration(t.metrics.TotalQueries)
	}
}

// RecordLLMUsage records token consumption and spend for one model call.
func (t *Telemetry) RecordLLMUsage(model string, promptTokens, completionTokens int64, cost float64) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tokens := promptTokens + completionTokens
	t.metrics.LLMRequests[model]++
	t.metrics.LLMTokensUsed[model] += tokens

	if t.config.CostTracking {
		t.costs.ModelCosts[model] += cost
		t.costs.TotalCost += cost
		t.costs.TotalTokens += tokens
	}
}

// RecordSourceAccess records one retrieval against an external source
// ("evidence_store" or "newsapi").
func (t *Telemetry) RecordSourceAccess(source string, duration time.Duration, success bool, results int) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.metrics.SourceRequests[source]++
	if !success {
		t.metrics.SourceFailures[source]++
	}
	t.metrics.SourceResults[source] += int64(results)
}

// GetMetrics returns a copy of the current counters.
func (t *Telemetry) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.metrics
	out.QueriesByPath = copyInt64Map(t.metrics.QueriesByPath)
	out.LLMRequests = copyInt64Map(t.metrics.LLMRequests)
	out.LLMTokensUsed = copyInt64Map(t.metrics.LLMTokensUsed)
	out.SourceRequests = copyInt64Map(t.metrics.SourceRequests)
	out.SourceFailures = copyInt64Map(t.metrics.SourceFailures)
	out.SourceResults = copyInt64Map(t.metrics.SourceResults)
	return out
}

// GetCosts returns a copy of the accumulated spend.
func (t *Telemetry) GetCosts() CostTracker {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.costs
	out.ModelCosts = make(map[string]float64, len(t.costs.ModelCosts))
	for k, v := range t.costs.ModelCosts {
		out.ModelCosts[k] = v
	}
	return out
}

// LogSummary prints a one-line digest of the counters.
func (t *Telemetry) LogSummary() {
	m := t.GetMetrics()
	c := t.GetCosts()
	t.logger.Printf("queries=%d ok=%d failed=%d avg=%s tokens=%d cost=%.4f",
		m.TotalQueries, m.SuccessfulQueries, m.FailedQueries, m.AverageQueryTime, c.TotalTokens, c.TotalCost)
}

func copyInt64Map(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
