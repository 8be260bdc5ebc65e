package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all gateway collectors. A private registry keeps the
// /metrics endpoint free of unrelated default collectors' noise, except for
// the process and Go runtime stats registered below.
var Registry = prometheus.NewRegistry()

var (
	// CameraFramesTotal counts complete JPEG frames extracted per printer.
	CameraFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bambui_camera_frames_total",
			Help: "Total number of complete camera frames received.",
		},
		[]string{"printer"},
	)

	// CameraReconnectsTotal counts camera transport reconnect attempts.
	CameraReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bambui_camera_reconnects_total",
			Help: "Total number of camera stream reconnect attempts.",
		},
		[]string{"printer"},
	)

	// StatusFragmentsTotal counts merged telemetry fragments per printer.
	StatusFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bambui_status_fragments_total",
			Help: "Total number of telemetry fragments merged into snapshots.",
		},
		[]string{"printer"},
	)

	// StatusRestartsTotal counts supervised restarts of the status loop.
	StatusRestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bambui_status_restarts_total",
			Help: "Total number of status loop restarts performed by the supervisor.",
		},
		[]string{"printer"},
	)

	// CommandsTotal counts dispatched commands by type and outcome.
	// outcome: published, rejected, failed
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bambui_commands_total",
			Help: "Total number of dispatched commands.",
		},
		[]string{"printer", "type", "outcome"},
	)

	// ActiveSubscribers tracks the current subscriber count per printer.
	ActiveSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bambui_active_subscribers",
			Help: "Number of clients currently subscribed to a printer session.",
		},
		[]string{"printer"},
	)
)

func init() {
	Registry.MustRegister(
		CameraFramesTotal,
		CameraReconnectsTotal,
		StatusFragmentsTotal,
		StatusRestartsTotal,
		CommandsTotal,
		ActiveSubscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler returns the HTTP handler serving the gateway registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
