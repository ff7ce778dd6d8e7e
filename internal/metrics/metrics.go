// Package metrics provides Prometheus metrics for the peck board.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/peckboard/internal/logic"
)

const namespace = "peckboard"

// States lists the controller states exported by the state gauge.
var States = []string{"UNINITIALIZED", "DISCOVERING", "READY", "MONITORING", "STOPPED", "FAILED"}

// Metrics holds the peck board collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	pecks         *prometheus.CounterVec
	color         *prometheus.GaugeVec
	state         *prometheus.GaugeVec
	mqttConnected prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pecks_total",
			Help:      "Accepted pecks per key position",
		}, []string{"position"}),
		color: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "led",
			Name:      "color",
			Help:      "Current LED color index per key position (0=off 1=blue 2=red 3=green 4=all)",
		}, []string{"position"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "controller",
			Name:      "state",
			Help:      "1 for the current controller state, 0 otherwise",
		}, []string{"state"}),
		mqttConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "connected",
			Help:      "Whether the MQTT client is connected",
		}),
	}

	m.registry.MustRegister(
		m.pecks, m.color, m.state, m.mqttConnected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, pos := range logic.Positions {
		m.pecks.WithLabelValues(pos.String())
		m.color.WithLabelValues(pos.String()).Set(float64(logic.ColorOff))
	}
	m.SetState("UNINITIALIZED")
	return m
}

// ObservePeck counts a peck on pos and records its new color.
func (m *Metrics) ObservePeck(pos logic.KeyPosition, color logic.LedColor) {
	if !pos.Valid() {
		return
	}
	m.pecks.WithLabelValues(pos.String()).Inc()
	m.color.WithLabelValues(pos.String()).Set(float64(color))
}

// SetState marks state as the current controller state.
func (m *Metrics) SetState(state string) {
	for _, s := range States {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s).Set(v)
	}
}

// SetMQTTConnected records the MQTT connection status.
func (m *Metrics) SetMQTTConnected(connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.mqttConnected.Set(v)
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
