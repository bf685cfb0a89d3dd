// Package metrics bridges the package-level rcrowley/go-metrics counters
// registered throughout dex-proxy (internal/gaspool, internal/accountpool,
// internal/ordercache) onto a Prometheus text-exposition HTTP endpoint,
// mirroring the teacher's dual use of both libraries (see DESIGN.md).
package metrics

import (
	"net/http"

	rmetrics "github.com/rcrowley/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector adapts the default rcrowley/go-metrics registry into a
// prometheus.Collector, polled on each scrape.
type Collector struct {
	registry rmetrics.Registry
}

// NewCollector wraps the default registry.
func NewCollector() *Collector {
	return &Collector{registry: rmetrics.DefaultRegistry}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Dynamic metric set: descriptions are emitted lazily in Collect.
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Each(func(name string, metric interface{}) {
		switch m := metric.(type) {
		case rmetrics.Counter:
			desc := prometheus.NewDesc(sanitize(name), name, nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(m.Count()))
		case rmetrics.Gauge:
			desc := prometheus.NewDesc(sanitize(name), name, nil, nil)
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(m.Value()))
		}
	})
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return "dex_proxy_" + string(out)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector())
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
