package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RankingRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_requests_total",
		Help: "Search requests served, by execution path",
	}, []string{"path"})

	RankingLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ranking_request_latency_seconds",
		Help:    "End-to-end latency of the search pipeline",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	StageFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_failures_total",
		Help: "Pipeline stage failures folded into fallbacks",
	}, []string{"stage", "kind"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_cache_lookups_total",
		Help: "Result cache lookups by outcome (hit, miss, error)",
	}, []string{"outcome"})

	SerendipityInjections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ranking_serendipity_injections_total",
		Help: "Lists whose final slot received a cross-group candidate",
	})

	BanditFeedbackEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bandit_feedback_events_total",
		Help: "Feedback events ingested, by action",
	}, []string{"action"})

	BanditSampleFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bandit_sample_fallbacks_total",
		Help: "Bandit samples that fell back to the neutral score",
	})
)

func Init() {
	prometheus.MustRegister(
		RankingRequests,
		RankingLatency,
		StageFailures,
		CacheLookups,
		SerendipityInjections,
		BanditFeedbackEvents,
		BanditSampleFallbacks,
	)
}
