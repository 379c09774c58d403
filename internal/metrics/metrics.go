/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics exposes the Prometheus counters and gauges shared by the
// chaos and workload binaries, plus a small HTTP server to serve them.
package metrics

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FaultsInvokedTotal counts faults injected, labeled by fault type.
	FaultsInvokedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "faults_invoked_total",
			Help: "Total number of faults invoked by the chaos loop.",
		},
		[]string{"fault_type"},
	)

	// FaultsOutstanding is the current depth of the pending-repair stack.
	FaultsOutstanding = promauto.With(prometheus.DefaultRegisterer).NewGauge(
		prometheus.GaugeOpts{
			Name: "faults_outstanding",
			Help: "Number of invoked faults awaiting repair.",
		},
	)

	// MitigationWaitSeconds observes how long the chaos loop waited for a
	// fault to be mitigated.
	MitigationWaitSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mitigation_wait_seconds",
			Help:    "Time spent waiting for SUT mitigation of an invoked fault.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// WorkloadsActive is the current count of live tenant workloads.
	WorkloadsActive = promauto.With(prometheus.DefaultRegisterer).NewGauge(
		prometheus.GaugeOpts{
			Name: "workloads_active",
			Help: "Number of tenant workloads currently created.",
		},
	)

	// WorkloadsCreatedTotal counts Creator executions.
	WorkloadsCreatedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
		prometheus.CounterOpts{
			Name: "workloads_created_total",
			Help: "Total number of tenant workloads created.",
		},
	)

	// WorkloadsDestroyedTotal counts destroy lifecycle ticks.
	WorkloadsDestroyedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
		prometheus.CounterOpts{
			Name: "workloads_destroyed_total",
			Help: "Total number of tenant workloads destroyed.",
		},
	)

	// LifecycleTickDurationSeconds observes the wall-clock cost of one
	// Lifecycle Action execution.
	LifecycleTickDurationSeconds = promauto.With(prometheus.DefaultRegisterer).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lifecycle_tick_duration_seconds",
			Help:    "Duration of a single workload lifecycle tick.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// WorkloadsLifecycleTicksTotal counts successful lifecycle ticks (an
	// annotation patch, or a destroy), labeled by the action taken.
	WorkloadsLifecycleTicksTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "workloads_lifecycle_ticks_total",
			Help: "Total number of successful lifecycle ticks, by action.",
		},
		[]string{"action"},
	)
)

// Server serves the process's registered metrics over HTTP.
type Server struct {
	httpServer *http.Server
	log        logr.Logger
}

// NewServer creates a metrics server listening on addr. An empty addr
// disables the server; StartAsync becomes a no-op.
func NewServer(addr string, log logr.Logger) *Server {
	if addr == "" {
		return &Server{log: log}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		log:        log.WithName("metrics"),
	}
}

// StartAsync starts serving in a background goroutine. Bind/listen errors
// are logged, not returned, since metrics are observability, not a
// functional dependency of either loop.
func (s *Server) StartAsync() {
	if s.httpServer == nil {
		return
	}
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "metrics server stopped unexpectedly")
		}
	}()
	s.log.Info("metrics server listening", "addr", s.httpServer.Addr)
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
