package metrics

import (
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Snapshot(t *testing.T) {
	t.Run("Should guard zero denominators", func(t *testing.T) {
		s := NewRecorder().Snapshot()
		assert.Zero(t, s.SuccessRate)
		assert.Zero(t, s.AverageResponseTime)
		assert.Zero(t, s.CacheHitRate)
	})

	t.Run("Should derive rates from counters", func(t *testing.T) {
		r := NewRecorder()
		for range 4 {
			r.RequestStarted()
		}
		r.RequestFailed()
		r.RequestSucceeded(2 * time.Second)
		r.RequestSucceeded(1 * time.Second)
		r.RequestSucceeded(1 * time.Second)
		r.CacheHit()
		r.CacheMiss()
		r.CacheMiss()
		r.CacheMiss()

		s := r.Snapshot()
		assert.Equal(t, int64(4), s.TotalRequests)
		assert.Equal(t, int64(3), s.SuccessfulRequests)
		assert.Equal(t, int64(1), s.FailedRequests)
		assert.InDelta(t, 0.75, s.SuccessRate, 1e-9)
		assert.InDelta(t, 1.0, s.AverageResponseTime, 1e-9)
		assert.InDelta(t, 0.25, s.CacheHitRate, 1e-9)
	})

	t.Run("Should accumulate model usage", func(t *testing.T) {
		r := NewRecorder()
		r.RecordUsage("gpt-4o-mini", 1000, 500)
		r.RecordUsage("unknown-model", 10, 10)
		s := r.Snapshot()
		assert.Equal(t, int64(1010), s.InputTokens)
		assert.Equal(t, int64(510), s.OutputTokens)
		assert.GreaterOrEqual(t, s.EstimatedCostUSD, 0.0)
	})

	t.Run("Should be safe for concurrent use", func(t *testing.T) {
		r := NewRecorder()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.RequestStarted()
				r.CacheMiss()
				r.RequestSucceeded(time.Millisecond)
			}()
		}
		wg.Wait()
		s := r.Snapshot()
		assert.Equal(t, int64(50), s.TotalRequests)
		assert.Equal(t, int64(50), s.CacheMisses)
		assert.InDelta(t, 1.0, s.SuccessRate, 1e-9)
	})
}

func TestHandler(t *testing.T) {
	t.Run("Should expose counters in the text format", func(t *testing.T) {
		r := NewRecorder()
		r.RequestStarted()
		r.RequestSucceeded(time.Second)
		r.CacheHit()
		r.Escalation()

		h, err := Handler(r, func() int { return 7 })
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)

		text := string(body)
		assert.Contains(t, text, `shopagent_requests_total{outcome="total"} 1`)
		assert.Contains(t, text, `shopagent_requests_total{outcome="successful"} 1`)
		assert.Contains(t, text, `shopagent_cache_lookups_total{result="hit"} 1`)
		assert.Contains(t, text, `shopagent_web_search_escalations_total 1`)
		assert.Contains(t, text, `shopagent_cache_entries 7`)
	})
}
