// Package metrics holds the Prometheus collectors shared by the pipeline
// and the HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "dataset",
		Name:      "cache_hits_total",
		Help:      "Dataset cache lookups served from memory.",
	}, []string{"schema"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "dataset",
		Name:      "cache_misses_total",
		Help:      "Dataset cache lookups that required a load.",
	}, []string{"schema"})

	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "dataset",
		Name:      "rows_dropped_total",
		Help:      "Rows dropped at load time for an invalid primary timestamp.",
	}, []string{"schema"})

	CellsCoerced = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "dataset",
		Name:      "cells_coerced_total",
		Help:      "Numeric cells replaced by 0 at load time.",
	}, []string{"schema"})

	LoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "dataset",
		Name:      "load_duration_seconds",
		Help:      "Time spent reading and normalizing a source.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"schema"})

	ComputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashboard",
		Subsystem: "board",
		Name:      "compute_duration_seconds",
		Help:      "Time spent filtering and aggregating one dashboard refresh.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashboard",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Dashboard API requests by board, operation and status class.",
	}, []string{"kind", "op", "status"})
)
