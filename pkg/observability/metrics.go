package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcp)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels

	// Registerer to register collectors with. Defaults to the global
	// registerer; tests pass a fresh prometheus.NewRegistry().
	Registerer prometheus.Registerer
}

// MetricsProvider records protocol activity
type MetricsProvider interface {
	// Wire-level message flow
	RecordMessageSent(ctx context.Context, method, msgType, status string, size int)
	RecordMessageReceived(ctx context.Context, method, msgType string, size int)

	// Session-level request flow
	RecordRequest(ctx context.Context, method, status string, duration time.Duration)
	RecordIncomingRequest(ctx context.Context, method, status string, duration time.Duration)
	RecordSessionState(ctx context.Context, state string)
	RecordActiveSessions(ctx context.Context, delta int)

	// Feature operations
	RecordToolCall(ctx context.Context, tool, status string, duration time.Duration)
	RecordResourceOperation(ctx context.Context, operation, status string, duration time.Duration)
	RecordPromptGet(ctx context.Context, prompt, status string, duration time.Duration)

	// Errors by wire code
	RecordError(ctx context.Context, code, method string)

	// Custom metrics
	RecordGauge(name string, value float64, labels prometheus.Labels)
	RecordCounter(name string, labels prometheus.Labels)
	RecordHistogram(name string, value float64, labels prometheus.Labels)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	// Wire-level metrics
	messageSentTotal     *prometheus.CounterVec
	messageReceivedTotal *prometheus.CounterVec
	messageBytes         *prometheus.HistogramVec

	// Session metrics
	requestDuration         *prometheus.HistogramVec
	requestTotal            *prometheus.CounterVec
	incomingRequestDuration *prometheus.HistogramVec
	incomingRequestTotal    *prometheus.CounterVec
	sessionState            *prometheus.GaugeVec
	activeSessions          prometheus.Gauge

	// Feature metrics
	toolCallDuration          *prometheus.HistogramVec
	resourceOperationDuration *prometheus.HistogramVec
	promptGetDuration         *prometheus.HistogramVec

	// Error metrics
	errorTotal *prometheus.CounterVec

	// Custom metrics registry
	customMetrics map[string]prometheus.Collector
	mu            sync.RWMutex
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	// Set defaults
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		// Default buckets for milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}

	// Add service labels to const labels
	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	config.ConstLabels["service"] = config.ServiceName
	config.ConstLabels["version"] = config.ServiceVersion
	config.ConstLabels["environment"] = config.Environment

	provider := &PrometheusMetricsProvider{
		config:        config,
		customMetrics: make(map[string]prometheus.Collector),
	}

	provider.initializeMetrics()

	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return provider, nil
}

// initializeMetrics creates all metric collectors
func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.messageSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "message_sent_total",
			Help:        "Total number of messages sent on the transport",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "type", "status"},
	)

	p.messageReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "message_received_total",
			Help:        "Total number of messages received on the transport",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "type"},
	)

	p.messageBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "message_bytes",
			Help:        "Size of transport payloads in bytes",
			Buckets:     []float64{64, 256, 1024, 4096, 16384, 65536, 262144},
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"direction"},
	)

	p.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_duration_milliseconds",
			Help:        "Round-trip duration of outgoing requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "request_total",
			Help:        "Total number of outgoing requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.incomingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "incoming_request_duration_milliseconds",
			Help:        "Handling duration of incoming requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.incomingRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "incoming_request_total",
			Help:        "Total number of incoming requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.sessionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "session_state",
			Help:        "Current session state (1 for the active state, 0 otherwise)",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"state"},
	)

	p.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of active sessions",
			ConstLabels: p.config.ConstLabels,
		},
	)

	p.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool calls in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"tool", "status"},
	)

	p.resourceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "resource_operation_duration_milliseconds",
			Help:        "Duration of resource operations in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"operation", "status"},
	)

	p.promptGetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "prompt_get_duration_milliseconds",
			Help:        "Duration of prompt retrievals in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"prompt", "status"},
	)

	p.errorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "error_total",
			Help:        "Total number of errors by wire code",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"code", "method"},
	)
}

// registerMetrics registers all metrics with the configured registerer
func (p *PrometheusMetricsProvider) registerMetrics() error {
	collectors := []prometheus.Collector{
		p.messageSentTotal,
		p.messageReceivedTotal,
		p.messageBytes,
		p.requestDuration,
		p.requestTotal,
		p.incomingRequestDuration,
		p.incomingRequestTotal,
		p.sessionState,
		p.activeSessions,
		p.toolCallDuration,
		p.resourceOperationDuration,
		p.promptGetDuration,
		p.errorTotal,
	}

	for _, collector := range collectors {
		if err := p.config.Registerer.Register(collector); err != nil {
			// Tolerate re-registration so multiple providers can share
			// a process
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}

// RecordMessageSent records an outgoing transport payload
func (p *PrometheusMetricsProvider) RecordMessageSent(ctx context.Context, method, msgType, status string, size int) {
	p.messageSentTotal.WithLabelValues(method, msgType, status).Inc()
	p.messageBytes.WithLabelValues("sent").Observe(float64(size))
}

// RecordMessageReceived records an incoming transport payload
func (p *PrometheusMetricsProvider) RecordMessageReceived(ctx context.Context, method, msgType string, size int) {
	p.messageReceivedTotal.WithLabelValues(method, msgType).Inc()
	p.messageBytes.WithLabelValues("received").Observe(float64(size))
}

// RecordRequest records an outgoing request round trip
func (p *PrometheusMetricsProvider) RecordRequest(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.requestDuration.WithLabelValues(method, status).Observe(ms)
	p.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordIncomingRequest records the handling of an incoming request
func (p *PrometheusMetricsProvider) RecordIncomingRequest(ctx context.Context, method, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.incomingRequestDuration.WithLabelValues(method, status).Observe(ms)
	p.incomingRequestTotal.WithLabelValues(method, status).Inc()
}

// RecordSessionState records the current session state
func (p *PrometheusMetricsProvider) RecordSessionState(ctx context.Context, state string) {
	for _, s := range []string{"created", "handshaking", "active", "closed"} {
		p.sessionState.WithLabelValues(s).Set(0)
	}
	p.sessionState.WithLabelValues(state).Set(1)
}

// RecordActiveSessions records the change in active sessions
func (p *PrometheusMetricsProvider) RecordActiveSessions(ctx context.Context, delta int) {
	if delta > 0 {
		p.activeSessions.Add(float64(delta))
	} else {
		p.activeSessions.Sub(float64(-delta))
	}
}

// RecordToolCall records a tool call
func (p *PrometheusMetricsProvider) RecordToolCall(ctx context.Context, tool, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.toolCallDuration.WithLabelValues(tool, status).Observe(ms)
}

// RecordResourceOperation records a resource operation
func (p *PrometheusMetricsProvider) RecordResourceOperation(ctx context.Context, operation, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.resourceOperationDuration.WithLabelValues(operation, status).Observe(ms)
}

// RecordPromptGet records a prompt retrieval
func (p *PrometheusMetricsProvider) RecordPromptGet(ctx context.Context, prompt, status string, duration time.Duration) {
	ms := float64(duration.Milliseconds())
	p.promptGetDuration.WithLabelValues(prompt, status).Observe(ms)
}

// RecordError records an error by wire code
func (p *PrometheusMetricsProvider) RecordError(ctx context.Context, code, method string) {
	p.errorTotal.WithLabelValues(code, method).Inc()
}

// RecordGauge records a custom gauge metric
func (p *PrometheusMetricsProvider) RecordGauge(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if gauge, exists := p.customMetrics[key]; exists {
		if g, ok := gauge.(*prometheus.GaugeVec); ok {
			g.With(labels).Set(value)
			return
		}
	}

	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom gauge metric: %s", name),
			ConstLabels: p.config.ConstLabels,
		},
		labelKeys(labels),
	)

	if err := p.config.Registerer.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			gauge = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return
		}
	}
	p.customMetrics[key] = gauge
	gauge.With(labels).Set(value)
}

// RecordCounter records a custom counter metric
func (p *PrometheusMetricsProvider) RecordCounter(name string, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if counter, exists := p.customMetrics[key]; exists {
		if c, ok := counter.(*prometheus.CounterVec); ok {
			c.With(labels).Inc()
			return
		}
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom counter metric: %s", name),
			ConstLabels: p.config.ConstLabels,
		},
		labelKeys(labels),
	)

	if err := p.config.Registerer.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			counter = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return
		}
	}
	p.customMetrics[key] = counter
	counter.With(labels).Inc()
}

// RecordHistogram records a custom histogram metric
func (p *PrometheusMetricsProvider) RecordHistogram(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if histogram, exists := p.customMetrics[key]; exists {
		if h, ok := histogram.(*prometheus.HistogramVec); ok {
			h.With(labels).Observe(value)
			return
		}
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom histogram metric: %s", name),
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		labelKeys(labels),
	)

	if err := p.config.Registerer.Register(histogram); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			histogram = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return
		}
	}
	p.customMetrics[key] = histogram
	histogram.With(labels).Observe(value)
}

// Start starts the metrics HTTP server
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	handler := promhttp.Handler()
	if gatherer, ok := p.config.Registerer.(prometheus.Gatherer); ok {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	mux.Handle(p.config.MetricsPath, handler)

	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		_ = p.server.ListenAndServe()
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

func labelKeys(labels prometheus.Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}

// NoopMetricsProvider discards everything. It is the default wherever a
// MetricsProvider is optional.
type NoopMetricsProvider struct{}

// NewNoopMetricsProvider creates a metrics provider that records nothing
func NewNoopMetricsProvider() MetricsProvider {
	return NoopMetricsProvider{}
}

func (NoopMetricsProvider) RecordMessageSent(context.Context, string, string, string, int) {}
func (NoopMetricsProvider) RecordMessageReceived(context.Context, string, string, int)     {}
func (NoopMetricsProvider) RecordRequest(context.Context, string, string, time.Duration)   {}
func (NoopMetricsProvider) RecordIncomingRequest(context.Context, string, string, time.Duration) {
}
func (NoopMetricsProvider) RecordSessionState(context.Context, string)                      {}
func (NoopMetricsProvider) RecordActiveSessions(context.Context, int)                       {}
func (NoopMetricsProvider) RecordToolCall(context.Context, string, string, time.Duration)   {}
func (NoopMetricsProvider) RecordResourceOperation(context.Context, string, string, time.Duration) {
}
func (NoopMetricsProvider) RecordPromptGet(context.Context, string, string, time.Duration) {}
func (NoopMetricsProvider) RecordError(context.Context, string, string)                    {}
func (NoopMetricsProvider) RecordGauge(string, float64, prometheus.Labels)                 {}
func (NoopMetricsProvider) RecordCounter(string, prometheus.Labels)                        {}
func (NoopMetricsProvider) RecordHistogram(string, float64, prometheus.Labels)             {}
func (NoopMetricsProvider) Start(context.Context) error                                    { return nil }
func (NoopMetricsProvider) Shutdown(context.Context) error                                 { return nil }
