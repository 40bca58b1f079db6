// Copyright 2026 The IPWB Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edverillo/ipwb/lib/store"
)

// Metrics carries the server's Prometheus instruments on a private
// registry, so tests can run many servers without collector
// collisions.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
}

// NewMetrics creates and registers the server instruments.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipwb",
			Name:      "replay_requests_total",
			Help:      "Requests served, by route and status class.",
		}, []string{"route", "class"}),
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipwb",
			Name:      "replay_resolutions_total",
			Help:      "Memento resolutions, by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ipwb",
			Name:      "replay_store_fetch_seconds",
			Help:      "Content store fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.requestsTotal, m.resolutionsTotal, m.fetchDuration)
	return m
}

// Registry exposes the private registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) countRequest(route string, status int) {
	m.requestsTotal.WithLabelValues(route, fmt.Sprintf("%dxx", status/100)).Inc()
}

func (m *Metrics) countResolution(outcome string) {
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// instrumentedStore wraps a store client and observes fetch latency.
type instrumentedStore struct {
	inner   store.Client
	metrics *Metrics
}

func (s *instrumentedStore) Cat(ctx context.Context, hash string) ([]byte, error) {
	start := time.Now()
	blob, err := s.inner.Cat(ctx, hash)
	s.metrics.fetchDuration.Observe(time.Since(start).Seconds())
	return blob, err
}

func (s *instrumentedStore) IsAlive(ctx context.Context) bool {
	return s.inner.IsAlive(ctx)
}
