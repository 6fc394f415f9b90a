// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the practice
// service. Exposed via /metrics; all operations are thread-safe through
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aleutian"
const practiceSubsystem = "practice"

// PracticeMetrics holds all Prometheus metrics for session and matching
// operations. Initialize once at startup via NewPracticeMetrics().
type PracticeMetrics struct {
	// SessionsStartedTotal counts started sessions by hand filter.
	SessionsStartedTotal *prometheus.CounterVec

	// SessionsEndedTotal counts finished sessions by how they ended.
	// Labels: reason (ended, aborted)
	SessionsEndedTotal *prometheus.CounterVec

	// NotesProcessedTotal counts submitted notes by matching outcome.
	// Labels: outcome (correct, wrong, extra)
	NotesProcessedTotal *prometheus.CounterVec

	// NoteMatchSeconds measures the in-memory matching latency per note.
	NoteMatchSeconds prometheus.Histogram

	// ActiveConnections gauges currently open websocket connections.
	ActiveConnections prometheus.Gauge

	// CombinedScore observes the final score of every ended session.
	CombinedScore prometheus.Histogram
}

// NewPracticeMetrics creates and registers all practice metrics with the
// default registry.
func NewPracticeMetrics() *PracticeMetrics {
	return &PracticeMetrics{
		SessionsStartedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "sessions_started_total",
			Help:      "Practice sessions started, by hand filter.",
		}, []string{"hand"}),

		SessionsEndedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "sessions_ended_total",
			Help:      "Practice sessions finished, by reason.",
		}, []string{"reason"}),

		NotesProcessedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "notes_processed_total",
			Help:      "Played notes processed, by matching outcome.",
		}, []string{"outcome"}),

		NoteMatchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "note_match_seconds",
			Help:      "In-memory matching latency per submitted note.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),

		ActiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "active_connections",
			Help:      "Currently open session websocket connections.",
		}),

		CombinedScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: practiceSubsystem,
			Name:      "combined_score",
			Help:      "Final combined score of ended sessions (0-100).",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}
