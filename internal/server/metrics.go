package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/stats"
)

// Metrics exposes the monitor's state as Prometheus gauges. The
// registry is instance-scoped so multiple servers (tests, mainly) never
// collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	rxRate    *prometheus.GaugeVec
	txRate    *prometheus.GaugeVec
	sessionRx *prometheus.GaugeVec
	sessionTx *prometheus.GaugeVec

	interfaceBound prometheus.Gauge
	candidates     prometheus.Gauge
	wsClients      prometheus.Gauge
}

// NewMetrics creates and registers the gauge set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rxRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "rx_bytes_per_second",
			Help:      "Receive throughput of the monitored interface",
		}, []string{"interface"}),
		txRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "tx_bytes_per_second",
			Help:      "Transmit throughput of the monitored interface",
		}, []string{"interface"}),
		sessionRx: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "session_rx_bytes",
			Help:      "Bytes received since the interface was selected",
		}, []string{"interface"}),
		sessionTx: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "session_tx_bytes",
			Help:      "Bytes transmitted since the interface was selected",
		}, []string{"interface"}),
		interfaceBound: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "interface_bound",
			Help:      "Whether an interface is currently bound (1) or not (0)",
		}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "candidate_interfaces",
			Help:      "Number of interfaces eligible for monitoring",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "netgauge",
			Name:      "websocket_clients",
			Help:      "Number of connected WebSocket clients",
		}),
	}

	m.registry.MustRegister(
		m.rxRate,
		m.txRate,
		m.sessionRx,
		m.sessionTx,
		m.interfaceBound,
		m.candidates,
		m.wsClients,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveUpdate records a throughput snapshot.
func (m *Metrics) ObserveUpdate(snap stats.Snapshot) {
	m.rxRate.WithLabelValues(snap.InterfaceName).Set(snap.RxBytesPerSec)
	m.txRate.WithLabelValues(snap.InterfaceName).Set(snap.TxBytesPerSec)
	m.sessionRx.WithLabelValues(snap.InterfaceName).Set(float64(snap.SessionRxBytes))
	m.sessionTx.WithLabelValues(snap.InterfaceName).Set(float64(snap.SessionTxBytes))
	m.interfaceBound.Set(1)
}

// ObserveUnavailable clears the rate series. Stale rates are worse than
// absent ones; session totals stay, they remain true for the session.
func (m *Metrics) ObserveUnavailable() {
	m.interfaceBound.Set(0)
	m.rxRate.Reset()
	m.txRate.Reset()
}

// ObserveSelection resets all per-interface series for a new selection.
func (m *Metrics) ObserveSelection(d netiface.Descriptor) {
	m.rxRate.Reset()
	m.txRate.Reset()
	m.sessionRx.Reset()
	m.sessionTx.Reset()
	m.interfaceBound.Set(1)
}

// SetCandidates records the size of the candidate list.
func (m *Metrics) SetCandidates(n int) {
	m.candidates.Set(float64(n))
}

// SetClients records the number of connected WebSocket clients.
func (m *Metrics) SetClients(n int) {
	m.wsClients.Set(float64(n))
}
