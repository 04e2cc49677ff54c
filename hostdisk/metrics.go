package hostdisk

import "github.com/ardnew/scsibot/scsibotmetrics"

// Metrics adapts a [scsibotmetrics.Collector] to the command outcomes a
// Device produces.
type Metrics struct {
	collector *scsibotmetrics.Collector
}

// NewMetrics creates a Metrics backed by a fresh host-role Collector.
// Register Collector() with a Prometheus registerer to expose it.
func NewMetrics() *Metrics {
	return &Metrics{collector: scsibotmetrics.New(scsibotmetrics.RoleHost)}
}

// Collector returns the underlying Prometheus collector for registration.
func (m *Metrics) Collector() *scsibotmetrics.Collector {
	return m.collector
}

func (m *Metrics) observe(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.collector.ObserveCommand(operation, outcome)
}

func (m *Metrics) observeBytes(operation, direction string, n int) {
	m.collector.ObserveBytes(operation, direction, n)
}

// Snapshot reads the current command/byte counters. A zero Metrics (no
// Collector attached) reads as all zeros.
func (m Metrics) Snapshot() scsibotmetrics.Snapshot {
	if m.collector == nil {
		return scsibotmetrics.Snapshot{}
	}
	return m.collector.Snapshot()
}
