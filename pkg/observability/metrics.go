// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics collection for the kernel.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	// Skill Kernel metrics
	skillReloads      *prometheus.CounterVec
	skillReloadErrors *prometheus.CounterVec
	skillLoadDuration *prometheus.HistogramVec
	skillsLoaded      *prometheus.GaugeVec

	// Tool dispatch metrics
	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	// Router metrics
	routeRequests      *prometheus.CounterVec
	routeDuration      *prometheus.HistogramVec
	routeCacheHits     *prometheus.CounterVec
	routeLowConfidence *prometheus.CounterVec

	// Context Orchestrator metrics
	contextAssembleDuration *prometheus.HistogramVec
	contextTokensUsed       *prometheus.HistogramVec
	contextBudgetExceeded   *prometheus.CounterVec

	// Agent loop metrics
	agentSteps  *prometheus.CounterVec
	agentErrors *prometheus.CounterVec

	// Memory metrics
	memoryRecalls     *prometheus.CounterVec
	memoryRecallDur   *prometheus.HistogramVec
	memoryInteraction *prometheus.CounterVec

	// Evolution / Immune System metrics
	crystallizationCandidates *prometheus.CounterVec
	crystallizationRejected   *prometheus.CounterVec

	// Homeostasis metrics
	transactionsStarted  *prometheus.CounterVec
	transactionsResolved *prometheus.CounterVec
	conflictSeverity     *prometheus.CounterVec

	// HTTP metrics (optional introspection endpoint)
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance from configuration.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	cfg.SetDefaults()

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),
	}

	m.initSkillMetrics()
	m.initToolMetrics()
	m.initRouterMetrics()
	m.initContextMetrics()
	m.initAgentMetrics()
	m.initMemoryMetrics()
	m.initEvolutionMetrics()
	m.initHomeostasisMetrics()
	m.initHTTPMetrics()

	return m, nil
}

func (m *Metrics) initSkillMetrics() {
	m.skillReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "kernel",
			Name:      "skill_reloads_total",
			Help:      "Total number of skill hot-reload cycles",
		},
		[]string{"skill_name"},
	)
	m.skillReloadErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "kernel",
			Name:      "skill_reload_errors_total",
			Help:      "Total number of failed skill reload attempts",
		},
		[]string{"skill_name", "reason"},
	)
	m.skillLoadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "kernel",
			Name:      "skill_load_duration_seconds",
			Help:      "Time to scan, validate, and register one skill",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"skill_name"},
	)
	m.skillsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.config.Namespace,
			Subsystem: "kernel",
			Name:      "skills_loaded",
			Help:      "Number of skills currently registered",
		},
		[]string{},
	)
	m.registry.MustRegister(m.skillReloads, m.skillReloadErrors, m.skillLoadDuration, m.skillsLoaded)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool invocations",
		},
		[]string{"tool_name"},
	)
	m.toolCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"tool_name"},
	)
	m.toolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "tool",
			Name:      "errors_total",
			Help:      "Total number of tool invocation errors",
		},
		[]string{"tool_name", "error_kind"},
	)
	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initRouterMetrics() {
	m.routeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "requests_total",
			Help:      "Total number of route() calls",
		},
		[]string{"confidence_profile"},
	)
	m.routeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "duration_seconds",
			Help:      "route() call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"confidence_profile"},
	)
	m.routeCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "cache_hits_total",
			Help:      "Total number of routing decisions served from cache",
		},
		[]string{"cache"},
	)
	m.routeLowConfidence = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "router",
			Name:      "low_confidence_total",
			Help:      "Total number of routes that returned no tools above low_floor",
		},
		[]string{},
	)
	m.registry.MustRegister(m.routeRequests, m.routeDuration, m.routeCacheHits, m.routeLowConfidence)
}

func (m *Metrics) initContextMetrics() {
	m.contextAssembleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "contextorch",
			Name:      "assemble_duration_seconds",
			Help:      "Time to assemble one context bundle from all providers",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{},
	)
	m.contextTokensUsed = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "contextorch",
			Name:      "tokens_used",
			Help:      "Tokens consumed by an assembled context bundle",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 12),
		},
		[]string{},
	)
	m.contextBudgetExceeded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "contextorch",
			Name:      "budget_exceeded_total",
			Help:      "Total number of times a provider's contribution was truncated or dropped for budget",
		},
		[]string{"provider"},
	)
	m.registry.MustRegister(m.contextAssembleDuration, m.contextTokensUsed, m.contextBudgetExceeded)
}

func (m *Metrics) initAgentMetrics() {
	m.agentSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "agentloop",
			Name:      "steps_total",
			Help:      "Total number of Context->Complete->Act steps executed",
		},
		[]string{"step"},
	)
	m.agentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "agentloop",
			Name:      "errors_total",
			Help:      "Total number of agent loop step errors charged against the error budget",
		},
		[]string{"step"},
	)
	m.registry.MustRegister(m.agentSteps, m.agentErrors)
}

func (m *Metrics) initMemoryMetrics() {
	m.memoryRecalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "recalls_total",
			Help:      "Total number of episodic memory recall queries",
		},
		[]string{},
	)
	m.memoryRecallDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "recall_duration_seconds",
			Help:      "Episodic memory recall latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{},
	)
	m.memoryInteraction = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "memory",
			Name:      "interactions_logged_total",
			Help:      "Total number of interaction log entries recorded",
		},
		[]string{"outcome"},
	)
	m.registry.MustRegister(m.memoryRecalls, m.memoryRecallDur, m.memoryInteraction)
}

func (m *Metrics) initEvolutionMetrics() {
	m.crystallizationCandidates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "evolution",
			Name:      "crystallization_candidates_total",
			Help:      "Total number of crystallization candidates produced by check_crystallization",
		},
		[]string{},
	)
	m.crystallizationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "evolution",
			Name:      "crystallization_rejected_total",
			Help:      "Total number of crystallization candidates blocked by the Immune System",
		},
		[]string{"reason"},
	)
	m.registry.MustRegister(m.crystallizationCandidates, m.crystallizationRejected)
}

func (m *Metrics) initHomeostasisMetrics() {
	m.transactionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "homeostasis",
			Name:      "transactions_started_total",
			Help:      "Total number of Git-branch task transactions begun",
		},
		[]string{},
	)
	m.transactionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "homeostasis",
			Name:      "transactions_resolved_total",
			Help:      "Total number of task transactions committed or rolled back",
		},
		[]string{"outcome"},
	)
	m.conflictSeverity = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "homeostasis",
			Name:      "conflict_severity_total",
			Help:      "Total number of merge conflicts observed, by severity",
		},
		[]string{"severity"},
	)
	m.registry.MustRegister(m.transactionsStarted, m.transactionsResolved, m.conflictSeverity)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of introspection-endpoint HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.config.Namespace,
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Introspection-endpoint HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.registry.MustRegister(m.httpRequests, m.httpDuration)
}

// =============================================================================
// Skill Kernel recorders
// =============================================================================

// RecordSkillReload records one hot-reload attempt. errKind is empty on
// success, or a stable reason string (e.g. a kernelerr.Kind) on failure.
func (m *Metrics) RecordSkillReload(skillName string, duration time.Duration, errKind string) {
	if m == nil {
		return
	}
	m.skillReloads.WithLabelValues(skillName).Inc()
	m.skillLoadDuration.WithLabelValues(skillName).Observe(duration.Seconds())
	if errKind != "" {
		m.skillReloadErrors.WithLabelValues(skillName, errKind).Inc()
	}
}

func (m *Metrics) SetSkillsLoaded(count int) {
	if m == nil {
		return
	}
	m.skillsLoaded.WithLabelValues().Set(float64(count))
}

// =============================================================================
// Tool recorders
// =============================================================================

// RecordToolCall records one tool dispatch. errKind is empty on success.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration, errKind string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
	if errKind != "" {
		m.toolErrors.WithLabelValues(toolName, errKind).Inc()
	}
}

// =============================================================================
// Router recorders
// =============================================================================

func (m *Metrics) RecordRoute(profile string, duration time.Duration, fromCache bool, cacheName string, lowConfidence bool) {
	if m == nil {
		return
	}
	m.routeRequests.WithLabelValues(profile).Inc()
	m.routeDuration.WithLabelValues(profile).Observe(duration.Seconds())
	if fromCache {
		m.routeCacheHits.WithLabelValues(cacheName).Inc()
	}
	if lowConfidence {
		m.routeLowConfidence.WithLabelValues().Inc()
	}
}

// =============================================================================
// Context Orchestrator recorders
// =============================================================================

func (m *Metrics) RecordContextAssemble(duration time.Duration, tokensUsed int) {
	if m == nil {
		return
	}
	m.contextAssembleDuration.WithLabelValues().Observe(duration.Seconds())
	m.contextTokensUsed.WithLabelValues().Observe(float64(tokensUsed))
}

func (m *Metrics) RecordContextBudgetExceeded(provider string) {
	if m == nil {
		return
	}
	m.contextBudgetExceeded.WithLabelValues(provider).Inc()
}

// =============================================================================
// Agent Loop recorders
// =============================================================================

func (m *Metrics) RecordAgentStep(step string, err error) {
	if m == nil {
		return
	}
	m.agentSteps.WithLabelValues(step).Inc()
	if err != nil {
		m.agentErrors.WithLabelValues(step).Inc()
	}
}

// =============================================================================
// Memory recorders
// =============================================================================

func (m *Metrics) RecordMemoryRecall(duration time.Duration) {
	if m == nil {
		return
	}
	m.memoryRecalls.WithLabelValues().Inc()
	m.memoryRecallDur.WithLabelValues().Observe(duration.Seconds())
}

func (m *Metrics) RecordMemoryInteraction(outcome string) {
	if m == nil {
		return
	}
	m.memoryInteraction.WithLabelValues(outcome).Inc()
}

// =============================================================================
// Evolution / Immune System recorders
// =============================================================================

func (m *Metrics) RecordCrystallizationCandidate() {
	if m == nil {
		return
	}
	m.crystallizationCandidates.WithLabelValues().Inc()
}

func (m *Metrics) RecordCrystallizationRejected(reason string) {
	if m == nil {
		return
	}
	m.crystallizationRejected.WithLabelValues(reason).Inc()
}

// =============================================================================
// Homeostasis recorders
// =============================================================================

func (m *Metrics) RecordTransactionStarted() {
	if m == nil {
		return
	}
	m.transactionsStarted.WithLabelValues().Inc()
}

func (m *Metrics) RecordTransactionResolved(outcome string) {
	if m == nil {
		return
	}
	m.transactionsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordConflictSeverity(severity string) {
	if m == nil {
		return
	}
	m.conflictSeverity.WithLabelValues(severity).Inc()
}

// =============================================================================
// HTTP metrics
// =============================================================================

func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusCodeLabel(statusCode)
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}

// =============================================================================
// HTTP Handler
// =============================================================================

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
