package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopagent"

// Collector exports a Recorder's snapshot as Prometheus metrics.
type Collector struct {
	rec *Recorder

	requests     *prometheus.Desc
	responseTime *prometheus.Desc
	cache        *prometheus.Desc
	escalations  *prometheus.Desc
	tokens       *prometheus.Desc
	cost         *prometheus.Desc
	cacheEntries *prometheus.Desc

	entries func() int
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector over rec. entries, when non-nil, reports
// the response cache size.
func NewCollector(rec *Recorder, entries func() int) *Collector {
	return &Collector{
		rec:     rec,
		entries: entries,
		requests: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "requests_total"),
			"Queries submitted, by outcome.", []string{"outcome"}, nil),
		responseTime: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "response_time_seconds_total"),
			"Total wall time of successful queries.", nil, nil),
		cache: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "lookups_total"),
			"Response cache lookups, by result.", []string{"result"}, nil),
		escalations: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "web_search_escalations_total"),
			"Answers escalated to web search.", nil, nil),
		tokens: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "llm", "tokens_total"),
			"Model tokens used, by direction.", []string{"direction"}, nil),
		cost: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "llm", "estimated_cost_usd_total"),
			"Estimated model spend in USD.", nil, nil),
		cacheEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Live entries in the response cache.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.requests
	ch <- c.responseTime
	ch <- c.cache
	ch <- c.escalations
	ch <- c.tokens
	ch <- c.cost
	ch <- c.cacheEntries
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.rec.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.TotalRequests), "total")
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.SuccessfulRequests), "successful")
	ch <- prometheus.MustNewConstMetric(c.requests, prometheus.CounterValue, float64(s.FailedRequests), "failed")
	ch <- prometheus.MustNewConstMetric(c.responseTime, prometheus.CounterValue, s.TotalResponseTime)
	ch <- prometheus.MustNewConstMetric(c.cache, prometheus.CounterValue, float64(s.CacheHits), "hit")
	ch <- prometheus.MustNewConstMetric(c.cache, prometheus.CounterValue, float64(s.CacheMisses), "miss")
	ch <- prometheus.MustNewConstMetric(c.escalations, prometheus.CounterValue, float64(s.Escalations))
	ch <- prometheus.MustNewConstMetric(c.tokens, prometheus.CounterValue, float64(s.InputTokens), "input")
	ch <- prometheus.MustNewConstMetric(c.tokens, prometheus.CounterValue, float64(s.OutputTokens), "output")
	ch <- prometheus.MustNewConstMetric(c.cost, prometheus.CounterValue, s.EstimatedCostUSD)
	if c.entries != nil {
		ch <- prometheus.MustNewConstMetric(c.cacheEntries, prometheus.GaugeValue, float64(c.entries()))
	}
}

// Handler returns an HTTP handler serving rec in the Prometheus text
// format from a private registry.
func Handler(rec *Recorder, entries func() int) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(NewCollector(rec, entries)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
