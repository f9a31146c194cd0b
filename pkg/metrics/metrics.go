// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal counts chat turns by the path that produced the reply.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Chat turns by path (primary, fallback) and result",
		},
		[]string{"path", "result"},
	)

	// ConversationsStarted counts server-side conversations started by this process.
	ConversationsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_conversations_started_total",
			Help: "Server-side conversations started",
		},
	)

	// NotFoundRecoveries counts stale conversation ids healed after a history fetch.
	NotFoundRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_not_found_recoveries_total",
			Help: "Conversations dropped after the backend reported them missing",
		},
	)

	// WorkflowTransitions counts course workflow state changes.
	WorkflowTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_workflow_transitions_total",
			Help: "Course workflow state transitions",
		},
		[]string{"from", "to"},
	)

	// BackendDuration tracks latency of calls to the learning platform API.
	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Learning platform API call duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
		[]string{"endpoint", "status"},
	)

	// LLMDuration tracks direct completion provider latency.
	LLMDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "LLM completion duration",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// EventsPublished counts transcript and workflow events sent to NATS.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_events_published_total",
			Help: "Events published to the event stream",
		},
		[]string{"kind", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records which path answered a chat turn.
func RecordTurn(path, result string) {
	TurnsTotal.WithLabelValues(path, result).Inc()
}

// RecordTransition records a course workflow transition.
func RecordTransition(from, to string) {
	WorkflowTransitions.WithLabelValues(from, to).Inc()
}

// RecordBackendCall records a learning platform API call.
func RecordBackendCall(endpoint, status string, duration float64) {
	BackendDuration.WithLabelValues(endpoint, status).Observe(duration)
}

// RecordLLMCompletion records metrics for a direct LLM completion.
func RecordLLMCompletion(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
