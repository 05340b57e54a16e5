// Copyright 2026 Statekit Authors
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

package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/statekit/statekit/pkg/logger"
)

const (
	// Component labels.
	ComponentManager  = "manager"
	ComponentRegistry = "registry"
	ComponentTracker  = "tracker"
)

// Rejection reason labels, matching the rejection taxonomy.
const (
	ReasonValidation       = "validation"
	ReasonLowerPriority    = "lower_priority"
	ReasonExitBlocked      = "exit_blocked"
	ReasonEnterBlocked     = "enter_blocked"
	ReasonInterruptBlocked = "interrupt_blocked"
)

// Override consumption outcomes.
const (
	OverrideOutcomeCommitted = "committed"
	OverrideOutcomeRejected  = "rejected"
	OverrideOutcomeBlocked   = "blocked"
)

var (
	// Namespace and subsystem for all metrics.
	namespace = "statekit"
	subsystem = "core"

	// Error counters.
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	// Tick timing.
	tickTime = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tick_duration_milliseconds",
			Help:      "Time taken to execute a tick phase (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01, // 50th percentile with 1% error
				0.9:  0.01, // 90th percentile with 1% error
				0.95: 0.01, // 95th percentile with 1% error
				0.99: 0.01, // 99th percentile with 1% error
			},
		},
		[]string{"component", "instance"},
	)

	// Committed transitions.
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "transitions_total",
			Help:      "Total number of committed state transitions",
		},
		[]string{"manager"},
	)

	// Rejected transitions, labelled by rejection reason.
	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejections_total",
			Help:      "Total number of rejected state transitions by reason",
		},
		[]string{"manager", "reason"},
	)

	// Global override consumption, labelled by outcome.
	overridesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "overrides_consumed_total",
			Help:      "Total number of consumed global overrides by outcome",
		},
		[]string{"manager", "outcome"},
	)
)

// InitErrorCounter initializes the error counter for a component and instance.
// This ensures the metric exists with a zero value before the first error occurs.
func InitErrorCounter(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Add(0)
}

// IncErrorCount increments the error counter for a component and instance.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// ObserveTickTime records the duration of a tick phase for a component and instance.
func ObserveTickTime(component, instance string, duration time.Duration) {
	tickTime.WithLabelValues(component, instance).Observe(float64(duration.Milliseconds()))
}

// IncTransitionCount increments the committed transition counter for a manager.
func IncTransitionCount(manager string) {
	transitionsTotal.WithLabelValues(manager).Inc()
}

// IncRejectionCount increments the rejection counter for a manager and reason.
func IncRejectionCount(manager, reason string) {
	rejectionsTotal.WithLabelValues(manager, reason).Inc()
}

// IncOverrideCount increments the override consumption counter for a manager and outcome.
func IncOverrideCount(manager, outcome string) {
	overridesTotal.WithLabelValues(manager, outcome).Inc()
}

// StartMetricsServer starts an HTTP server exposing /metrics on the given port.
// It returns the server so the caller can shut it down.
func StartMetricsServer(port int) *http.Server {
	log := logger.For(logger.ComponentMetrics)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		log.Infof("Metrics server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()

	return server
}
