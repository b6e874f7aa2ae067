// Package metrics provides Prometheus metrics for the kegel check-in ledger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ledger service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ledger business metrics
	checkins      prometheus.Counter
	rejections    *prometheus.CounterVec
	combosEnded   prometheus.Counter
	claims        prometheus.Counter
	deposits      prometheus.Counter
	configUpdates *prometheus.CounterVec
	poolSize      prometheus.Gauge
	users         prometheus.Gauge
	boardEntries  *prometheus.GaugeVec

	// Single-writer command loop
	commandLatency    *prometheus.HistogramVec
	commandQueueDepth prometheus.Gauge

	// Snapshots
	snapshotCount    prometheus.Counter
	snapshotLastUnix prometheus.Gauge

	// Journal queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueue            prometheus.Counter
	queueDequeue            prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "kegel",
		subsystem:        "ledger",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.checkins = auto.NewCounter(m.counterOpts("checkins_total", "Total number of accepted check-ins"))
	m.rejections = auto.NewCounterVec(
		m.counterOpts("rejections_total", "Rejected mutations by operation and error kind"),
		[]string{"op", "kind"},
	)
	m.combosEnded = auto.NewCounter(m.counterOpts("combos_ended_total", "Total number of streaks that ended"))
	m.claims = auto.NewCounter(m.counterOpts("claims_total", "Total number of successful Merkle claims"))
	m.deposits = auto.NewCounter(m.counterOpts("admin_deposits_total", "Total number of admin deposits"))
	m.configUpdates = auto.NewCounterVec(
		m.counterOpts("config_updates_total", "Admin configuration changes by setting"),
		[]string{"setting"},
	)
	m.poolSize = auto.NewGauge(m.gaugeOpts("pool_size_tokens", "Reward pool size in whole tokens"))
	m.users = auto.NewGauge(m.gaugeOpts("users", "Number of addresses with a ledger record"))
	m.boardEntries = auto.NewGaugeVec(
		m.gaugeOpts("leaderboard_entries", "Current number of entries per leaderboard"),
		[]string{"board"},
	)

	m.commandLatency = auto.NewHistogramVec(
		m.histogramOpts("command_latency_milliseconds", "Time from command submission to completion"),
		[]string{"op"},
	)
	m.commandQueueDepth = auto.NewGauge(m.gaugeOpts("command_queue_depth", "Commands waiting for the mutator"))

	m.snapshotCount = auto.NewCounter(m.counterOpts("snapshot_count_total", "Total number of snapshots published"))
	m.snapshotLastUnix = auto.NewGauge(m.gaugeOpts("snapshot_last_unix", "Unix timestamp of the last snapshot publish"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("journal_queue_size", "Current size of the journal queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("journal_queue_capacity", "Maximum journal queue capacity"))
	m.queueEnqueue = auto.NewCounter(m.counterOpts("journal_enqueue_total", "Events enqueued for the journal"))
	m.queueDequeue = auto.NewCounter(m.counterOpts("journal_dequeue_total", "Events dequeued by journal workers"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("journal_enqueue_errors_total", "Events dropped because the journal queue was full or closed"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("journal_workers_active", "Number of running journal workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("journal_write_latency_milliseconds", "Journal write latency in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("journal_errors_total", "Journal write failures"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounterVec(
		m.counterOpts("http_rate_limited_total", "Requests rejected by the per-client rate limiter"),
		[]string{"endpoint"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds"))
}

// RecordCheckIn increments the accepted check-in counter.
func RecordCheckIn() { globalManager.checkins.Inc() }

// RecordRejection counts a rejected mutation.
func RecordRejection(op, kind string) {
	globalManager.rejections.WithLabelValues(op, kind).Inc()
}

// RecordComboEnded increments the ended streak counter.
func RecordComboEnded() { globalManager.combosEnded.Inc() }

// RecordClaim increments the successful claim counter.
func RecordClaim() { globalManager.claims.Inc() }

// RecordDeposit increments the admin deposit counter.
func RecordDeposit() { globalManager.deposits.Inc() }

// RecordConfigUpdate counts an admin setter call.
func RecordConfigUpdate(setting string) {
	globalManager.configUpdates.WithLabelValues(setting).Inc()
}

// UpdatePoolSize sets the pool gauge, expressed in whole tokens.
func UpdatePoolSize(tokens float64) { globalManager.poolSize.Set(tokens) }

// UpdateUsers sets the number of known addresses.
func UpdateUsers(count int) { globalManager.users.Set(float64(count)) }

// UpdateLeaderboardEntries sets the entry count for one board.
func UpdateLeaderboardEntries(board string, count int) {
	globalManager.boardEntries.WithLabelValues(board).Set(float64(count))
}

// RecordCommandLatency records how long a command took end to end.
func RecordCommandLatency(op string, latencyMs float64) {
	globalManager.commandLatency.WithLabelValues(op).Observe(latencyMs)
}

// UpdateCommandQueueDepth sets the pending command gauge.
func UpdateCommandQueueDepth(depth int) {
	globalManager.commandQueueDepth.Set(float64(depth))
}

// RecordSnapshotPublished marks a snapshot publish at the given unix time.
func RecordSnapshotPublished(unix int64) {
	globalManager.snapshotCount.Inc()
	globalManager.snapshotLastUnix.Set(float64(unix))
}

// UpdateQueueSize sets the current journal queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum journal queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records journal write latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the journal error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request refused by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }
