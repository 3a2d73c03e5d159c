// Package metrics keeps the pipeline's running counters and exposes them
// as a JSON snapshot and as Prometheus metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/ziadkadry99/shopagent/internal/llm"
)

// Recorder accumulates request, cache and model usage counters. It is safe
// for concurrent use.
type Recorder struct {
	mu sync.Mutex

	totalRequests      int64
	successfulRequests int64
	failedRequests     int64
	totalResponseTime  float64
	cacheHits          int64
	cacheMisses        int64
	escalations        int64

	inputTokens  int64
	outputTokens int64
	costUSD      float64
}

// NewRecorder returns a zeroed Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Snapshot is a point-in-time view of the counters with derived rates.
type Snapshot struct {
	TotalRequests       int64   `json:"total_requests"`
	SuccessfulRequests  int64   `json:"successful_requests"`
	FailedRequests      int64   `json:"failed_requests"`
	TotalResponseTime   float64 `json:"total_response_time"`
	CacheHits           int64   `json:"cache_hits"`
	CacheMisses         int64   `json:"cache_misses"`
	SuccessRate         float64 `json:"success_rate"`
	AverageResponseTime float64 `json:"average_response_time"`
	CacheHitRate        float64 `json:"cache_hit_rate"`
	Escalations         int64   `json:"web_search_escalations"`
	InputTokens         int64   `json:"llm_input_tokens"`
	OutputTokens        int64   `json:"llm_output_tokens"`
	EstimatedCostUSD    float64 `json:"llm_estimated_cost_usd"`
}

func (r *Recorder) RequestStarted() {
	r.mu.Lock()
	r.totalRequests++
	r.mu.Unlock()
}

func (r *Recorder) RequestFailed() {
	r.mu.Lock()
	r.failedRequests++
	r.mu.Unlock()
}

// RequestSucceeded counts a request that reached a terminal answer and adds
// its wall time to the response time total.
func (r *Recorder) RequestSucceeded(elapsed time.Duration) {
	r.mu.Lock()
	r.successfulRequests++
	r.totalResponseTime += elapsed.Seconds()
	r.mu.Unlock()
}

func (r *Recorder) CacheHit() {
	r.mu.Lock()
	r.cacheHits++
	r.mu.Unlock()
}

func (r *Recorder) CacheMiss() {
	r.mu.Lock()
	r.cacheMisses++
	r.mu.Unlock()
}

func (r *Recorder) Escalation() {
	r.mu.Lock()
	r.escalations++
	r.mu.Unlock()
}

// RecordUsage adds one model call's token usage and its estimated cost.
// Its signature matches llm.UsageFunc.
func (r *Recorder) RecordUsage(model string, inputTokens, outputTokens int) {
	cost := llm.EstimateCost(model, inputTokens, outputTokens)
	r.mu.Lock()
	r.inputTokens += int64(inputTokens)
	r.outputTokens += int64(outputTokens)
	r.costUSD += cost
	r.mu.Unlock()
}

// Snapshot returns the current counters. Zero denominators count as 1.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := float64(max(1, r.totalRequests))
	lookups := float64(max(1, r.cacheHits+r.cacheMisses))
	return Snapshot{
		TotalRequests:       r.totalRequests,
		SuccessfulRequests:  r.successfulRequests,
		FailedRequests:      r.failedRequests,
		TotalResponseTime:   r.totalResponseTime,
		CacheHits:           r.cacheHits,
		CacheMisses:         r.cacheMisses,
		SuccessRate:         float64(r.successfulRequests) / total,
		AverageResponseTime: r.totalResponseTime / total,
		CacheHitRate:        float64(r.cacheHits) / lookups,
		Escalations:         r.escalations,
		InputTokens:         r.inputTokens,
		OutputTokens:        r.outputTokens,
		EstimatedCostUSD:    r.costUSD,
	}
}
