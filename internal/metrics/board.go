// Package metrics provides Prometheus metrics for the board subsystems.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "boardnode"

var (
	buttonPresses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "presses_total",
		Help:      "Debounced button presses that produced a deferred action",
	}, []string{"button"})

	buttonBounces = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "bounces_suppressed_total",
		Help:      "Edges discarded inside the debounce window",
	}, []string{"button"})

	deferredActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "actions_total",
		Help:      "Deferred work items executed, by action and result",
	}, []string{"action", "result"})

	deferredDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "worker",
		Name:      "dropped_total",
		Help:      "Deferred work items rejected because the queue was full or stopped",
	})

	ledWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leds",
		Name:      "writes_total",
		Help:      "LED bank writes by mode",
	}, []string{"mode"})

	ledValue = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "leds",
		Name:      "value",
		Help:      "Current 6-bit LED bank value",
	})

	speakerOn = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "speaker",
		Name:      "on",
		Help:      "Speaker line state (1 = driven high)",
	})

	lineLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "gpio",
		Name:      "line_level",
		Help:      "Sampled level of each owned GPIO line",
	}, []string{"line", "owner"})

	maskedEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gpio",
		Name:      "masked_edges_total",
		Help:      "Edges that arrived while the interrupt line was masked",
	}, []string{"line"})
)

// IncButtonPress counts a debounced press.
func IncButtonPress(button string) {
	buttonPresses.WithLabelValues(button).Inc()
}

// IncButtonBounce counts an edge suppressed by the debounce state machine.
func IncButtonBounce(button string) {
	buttonBounces.WithLabelValues(button).Inc()
}

// IncDeferredAction counts an executed deferred work item.
func IncDeferredAction(action string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	deferredActions.WithLabelValues(action, result).Inc()
}

// IncDeferredDropped counts a work item that never reached the queue.
func IncDeferredDropped() {
	deferredDropped.Inc()
}

// IncLEDWrite counts an LED bank write in the given mode.
func IncLEDWrite(mode string) {
	ledWrites.WithLabelValues(mode).Inc()
}

// SetLEDValue records the LED bank value after a mutation.
func SetLEDValue(v byte) {
	ledValue.Set(float64(v))
}

// SetSpeaker records the speaker line state.
func SetSpeaker(on bool) {
	if on {
		speakerOn.Set(1)
		return
	}
	speakerOn.Set(0)
}

// SetLineLevel records the sampled level of a GPIO line.
func SetLineLevel(line, owner string, high bool) {
	v := 0.0
	if high {
		v = 1
	}
	lineLevel.WithLabelValues(line, owner).Set(v)
}

// DeleteLineLevel removes the level series of a released line.
func DeleteLineLevel(line, owner string) {
	lineLevel.DeleteLabelValues(line, owner)
}

// IncMaskedEdge counts an edge dropped by a masked interrupt line.
func IncMaskedEdge(line string) {
	maskedEdges.WithLabelValues(line).Inc()
}
