package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Pipeline metrics
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	stageDuration    *prometheus.HistogramVec
	recordsDropped   *prometheus.CounterVec
	accountDays      *prometheus.GaugeVec
	rankedAccounts   prometheus.Gauge
	notificationsOut *prometheus.CounterVec
	reportsArchived  *prometheus.CounterVec
	jobsActive       *prometheus.GaugeVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradermood_runs_total",
			Help: "Total number of analysis runs by outcome",
		},
		[]string{"status"},
	)
	r.runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradermood_run_duration_seconds",
			Help:    "Analysis run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradermood_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"stage"},
	)
	r.recordsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradermood_records_dropped_total",
			Help: "Input records dropped during normalization",
		},
		[]string{"reason"},
	)
	r.accountDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradermood_account_days",
			Help: "Account-days in the most recent run",
		},
		[]string{"state"},
	)
	r.rankedAccounts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradermood_ranked_accounts",
			Help: "Accounts eligible for ranking in the most recent run",
		},
	)
	r.notificationsOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradermood_notifications_total",
			Help: "Total number of digests sent to notifiers",
		},
		[]string{"notifier", "status"},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradermood_reports_archived_total",
			Help: "Total number of reports written to archive storage",
		},
		[]string{"status"},
	)
	r.jobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradermood_jobs_active",
			Help: "Number of active jobs",
		},
		[]string{"type"},
	)

	reg.MustRegister(r.runsTotal)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.stageDuration)
	reg.MustRegister(r.recordsDropped)
	reg.MustRegister(r.accountDays)
	reg.MustRegister(r.rankedAccounts)
	reg.MustRegister(r.notificationsOut)
	reg.MustRegister(r.reportsArchived)
	reg.MustRegister(r.jobsActive)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordRun records a finished pipeline run. status is "ok", "no_overlap"
// or "error".
func (r *Registry) RecordRun(status string, duration float64) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(duration)
}

// RecordStage records how long one pipeline stage took.
func (r *Registry) RecordStage(stage string, duration float64) {
	r.stageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordDropped adds n dropped records for reason. Zero is ignored.
func (r *Registry) RecordDropped(reason string, n int) {
	if n <= 0 {
		return
	}
	r.recordsDropped.WithLabelValues(reason).Add(float64(n))
}

// SetAccountDays sets the matched and unmatched account-day gauges.
func (r *Registry) SetAccountDays(matched, unmatched int) {
	r.accountDays.WithLabelValues("matched").Set(float64(matched))
	r.accountDays.WithLabelValues("unmatched").Set(float64(unmatched))
}

// SetRankedAccounts sets the number of accounts with a complete profile.
func (r *Registry) SetRankedAccounts(n int) {
	r.rankedAccounts.Set(float64(n))
}

// RecordNotification records a digest delivery attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsOut.WithLabelValues(notifier, status).Inc()
}

// RecordArchive records a report archive write.
func (r *Registry) RecordArchive(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
}

// SetJobsActive sets the number of active jobs of a type.
func (r *Registry) SetJobsActive(jobType string, count int) {
	r.jobsActive.WithLabelValues(jobType).Set(float64(count))
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
