// Copyright 2025 Poiesic Systems
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

// Package metrics exposes Prometheus instrumentation for ingestion and search.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingestion outcome label values.
const (
	OutcomeIndexed     = "indexed"
	OutcomeUnsupported = "unsupported"
	OutcomeFailed      = "failed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// IngestionsTotal counts pipeline runs by outcome.
	IngestionsTotal *prometheus.CounterVec

	// ChunksAddedTotal counts chunks accepted into the table.
	ChunksAddedTotal prometheus.Counter

	// DuplicatesRejectedTotal counts candidate chunks dropped as duplicates.
	DuplicatesRejectedTotal prometheus.Counter

	// StageDuration observes time spent per pipeline stage.
	StageDuration *prometheus.HistogramVec

	// StageFailuresTotal counts failed runs by the stage that failed.
	StageFailuresTotal *prometheus.CounterVec

	// SearchesTotal counts queries by result.
	SearchesTotal *prometheus.CounterVec

	// SearchHits observes the number of hits per query.
	SearchHits prometheus.Histogram

	// TableRows is the current checkpoint table size.
	TableRows prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// All metrics are prefixed with "docindex_".
//
// Metrics:
//   - docindex_ingestions_total{outcome}
//   - docindex_chunks_added_total
//   - docindex_duplicates_rejected_total
//   - docindex_stage_duration_seconds{stage}
//   - docindex_stage_failures_total{stage}
//   - docindex_searches_total{result}
//   - docindex_search_hits
//   - docindex_table_rows
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		IngestionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_ingestions_total",
				Help: "Total number of file ingestions by outcome",
			},
			[]string{"outcome"},
		),
		ChunksAddedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docindex_chunks_added_total",
			Help: "Total number of chunks accepted into the checkpoint table",
		}),
		DuplicatesRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "docindex_duplicates_rejected_total",
			Help: "Total number of candidate chunks rejected as duplicates",
		}),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docindex_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
			},
			[]string{"stage"},
		),
		StageFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_stage_failures_total",
				Help: "Total number of pipeline runs failed at each stage",
			},
			[]string{"stage"},
		),
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docindex_searches_total",
				Help: "Total number of similarity searches by result",
			},
			[]string{"result"},
		),
		SearchHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "docindex_search_hits",
			Help:    "Number of hits returned per search",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
		}),
		TableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "docindex_table_rows",
			Help: "Number of rows in the checkpoint table",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.IngestionsTotal,
			m.ChunksAddedTotal,
			m.DuplicatesRejectedTotal,
			m.StageDuration,
			m.StageFailuresTotal,
			m.SearchesTotal,
			m.SearchHits,
			m.TableRows,
		)
	}
	return m
}

// ObserveStage records how long stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordIngestion records a finished pipeline run.
func (m *Metrics) RecordIngestion(outcome string, added, rejected int) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(outcome).Inc()
	m.ChunksAddedTotal.Add(float64(added))
	m.DuplicatesRejectedTotal.Add(float64(rejected))
}

// RecordFailure records a run that failed at stage.
func (m *Metrics) RecordFailure(stage string) {
	if m == nil {
		return
	}
	m.IngestionsTotal.WithLabelValues(OutcomeFailed).Inc()
	m.StageFailuresTotal.WithLabelValues(stage).Inc()
}

// RecordSearch records a query and its hit count. err marks a failed query.
func (m *Metrics) RecordSearch(hits int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SearchesTotal.WithLabelValues("error").Inc()
		return
	}
	if hits == 0 {
		m.SearchesTotal.WithLabelValues("empty").Inc()
	} else {
		m.SearchesTotal.WithLabelValues("hit").Inc()
	}
	m.SearchHits.Observe(float64(hits))
}

// SetTableRows sets the checkpoint table size gauge.
func (m *Metrics) SetTableRows(n int) {
	if m == nil {
		return
	}
	m.TableRows.Set(float64(n))
}
