// Package metrics funnels prometheus collector construction through a
// single shared registry so every collector carries the service's
// namespace and subsystem.
package metrics

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type manager struct {
	namespace string
	system    string
	registry  *prometheus.Registry
}

// active starts on a throwaway registry so a collector built before
// SetupMetricsManager runs never hits a nil registry.
var active = &manager{
	namespace: "default",
	system:    "default",
	registry:  prometheus.NewRegistry(),
}

// SetupMetricsManager rebinds collector construction to the given
// namespace, subsystem and registry. Call it once at startup before
// building collectors.
func SetupMetricsManager(ns, system string, registry *prometheus.Registry) {
	active = &manager{
		namespace: ns,
		system:    system,
		registry:  registry,
	}
	registry.Register(collectors.NewGoCollector())
}

func NewCounterVec(name string, labels []string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: sanitizeName(active.namespace),
			Subsystem: sanitizeName(active.system),
			Name:      sanitizeName(name),
			Help:      fmt.Sprintf("%s count of /%s/%s", name, active.namespace, active.system),
		},
		labels,
	)
	vec.WithLabelValues(zeroValues(labels)...).Add(0)

	active.registry.Register(vec)
	return vec
}

func NewHistogramVec(name string, labels []string) *prometheus.HistogramVec {
	vec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: sanitizeName(active.namespace),
			Subsystem: sanitizeName(active.system),
			Name:      sanitizeName(name),
			Help:      fmt.Sprintf("%s duration of /%s/%s", name, active.namespace, active.system),
		},
		labels,
	)
	vec.WithLabelValues(zeroValues(labels)...).Observe(0)

	active.registry.Register(vec)
	return vec
}

func NewGaugeVec(name string, labels []string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: sanitizeName(active.namespace),
			Subsystem: sanitizeName(active.system),
			Name:      sanitizeName(name),
			Help:      fmt.Sprintf("%s gauge of /%s/%s", name, active.namespace, active.system),
		},
		labels,
	)
	vec.WithLabelValues(zeroValues(labels)...).Add(0)

	active.registry.Register(vec)
	return vec
}

// DefaultExportHandler serves the shared registry in the prometheus
// text format.
func DefaultExportHandler() gin.HandlerFunc {
	h := promhttp.InstrumentMetricHandler(
		active.registry, promhttp.HandlerFor(active.registry, promhttp.HandlerOpts{}),
	)
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// zeroValues pre-creates the empty-label series so a collector shows
// up in the export before its first real observation.
func zeroValues(labels []string) []string {
	return make([]string, len(labels))
}

func sanitizeName(in string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(in)
}
