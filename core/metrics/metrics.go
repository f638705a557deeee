// Package metrics exposes bot activity as Prometheus collectors. Label
// values are drawn from small closed sets (update kinds, handler names,
// outcomes) so cardinality stays bounded.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shopbot"

// Collector records updates, handled events and outbound replies.
type Collector struct {
	reg *prometheus.Registry

	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec
	skipped        *prometheus.CounterVec
	events         *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	replies        *prometheus.CounterVec
}

// New registers the bot collectors plus Go runtime and process collectors
// on a private registry.
func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Updates that went through the middleware chain.",
		}, []string{"kind", "status"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "End-to-end handling time of one update, replies included.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_skipped_total",
			Help:      "Updates dropped before handling.",
		}, []string{"reason"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Classified events by handler and step outcome.",
		}, []string{"kind", "handler", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent deciding on replies for one event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Outbound replies by kind and delivery status.",
		}, []string{"kind", "status"}),
	}
	c.reg.MustRegister(
		c.updates, c.updateDuration, c.skipped,
		c.events, c.eventDuration, c.replies,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collectors live in.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

func status(err error) string {
	if err != nil {
		return "fail"
	}
	return "ok"
}

// ObserveUpdate implements the transport's update observer.
func (c *Collector) ObserveUpdate(kind string, took time.Duration, err error) {
	c.updates.WithLabelValues(kind, status(err)).Inc()
	c.updateDuration.WithLabelValues(kind).Observe(took.Seconds())
}

// Skip counts an update that was not handled.
func (c *Collector) Skip(reason string) {
	c.skipped.WithLabelValues(reason).Inc()
}

// ObserveEvent implements the engine observer.
func (c *Collector) ObserveEvent(kind, handler, outcome string, took time.Duration) {
	if handler == "" {
		handler = "unknown"
	}
	c.events.WithLabelValues(kind, handler, outcome).Inc()
	c.eventDuration.WithLabelValues(handler).Observe(took.Seconds())
}

// ObserveReply implements the emitter observer.
func (c *Collector) ObserveReply(kind string, err error) {
	c.replies.WithLabelValues(kind, status(err)).Inc()
}
