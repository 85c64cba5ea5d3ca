package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Plans = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "targetscope_plans_total",
		Help: "Total execution plans computed",
	})
	PlanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "targetscope_plan_duration_seconds",
		Help:    "Plan refresh duration seconds, including target and quota fetches",
		Buckets: prometheus.DefBuckets,
	})
	PlanEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targetscope_plan_entries",
		Help: "Enabled targets in the latest plan",
	})
	Commits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "targetscope_commits_total",
		Help: "Total schedule commits dispatched",
	})
	CommitErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "targetscope_commit_errors_total",
		Help: "Total failed schedule commits",
	})
	CommittedPosts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "targetscope_committed_posts_total",
		Help: "Posts/hour committed across all cycles",
	})
	CapacityRemaining = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "targetscope_capacity_remaining_posts",
		Help: "Remaining posts in the current quota window",
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "targetscope_api_retries_total",
		Help: "Total backend API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "targetscope_command_runs_total",
		Help: "CLI command invocations",
	}, []string{"cmd"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "targetscope_command_errors_total",
		Help: "CLI command failures",
	}, []string{"cmd"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "targetscope_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})
)

func init() {
	prometheus.MustRegister(Plans, PlanDuration, PlanEntries, Commits, CommitErrors, CommittedPosts,
		CapacityRemaining, APIRetries, CommandRuns, CommandErrors, HTTPRequests)
}

// Handler serves /metrics and /health on a fresh mux.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
// An empty addr falls back to METRICS_ADDR; if both are empty nothing starts.
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	go func() { _ = http.ListenAndServe(addr, Handler()) }()
}

// ObservePlanDuration records a plan refresh duration.
func ObservePlanDuration(start time.Time) {
	PlanDuration.Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
