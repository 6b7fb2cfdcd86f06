package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors and the registry they are registered on.
type Metrics struct {
	registry     *prometheus.Registry
	objects      *prometheus.CounterVec
	facets       *prometheus.CounterVec
	tessellation *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		objects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepmesh_objects_total",
				Help: "Document objects processed, by command and outcome",
			},
			[]string{"command", "status"},
		),
		facets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stepmesh_facets_total",
				Help: "Triangles produced by successful tessellations",
			},
			[]string{"command"},
		),
		tessellation: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stepmesh_tessellation_seconds",
				Help:    "Time spent processing one object",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"command"},
		),
	}
	m.registry.MustRegister(m.objects, m.facets, m.tessellation)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns hooks recording every finished object.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnObjectDone: func(_ context.Context, e *domain.ObjectEvent) {
			r := e.Result
			m.objects.WithLabelValues(e.Command, string(r.Status)).Inc()
			m.tessellation.WithLabelValues(e.Command).Observe(r.Duration.Seconds())
			if r.Status == domain.StatusConverted {
				m.facets.WithLabelValues(e.Command).Add(float64(r.Faces))
			}
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
