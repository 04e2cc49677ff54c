// Package scsibotmetrics exposes Prometheus instrumentation for hostdisk
// devices and target responders: command counts, bytes transferred, and
// CSW status tallies, one [prometheus.Collector] per handle.
package scsibotmetrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Role identifies which side of the transport a Collector instruments.
type Role string

// Instrumented roles.
const (
	RoleHost   Role = "host"
	RoleTarget Role = "target"
)

var (
	descCommandsTotal = prometheus.NewDesc(
		"scsibot_commands_total",
		"Number of SCSI commands processed, by operation and outcome.",
		[]string{"role", "operation", "outcome"}, nil,
	)
	descBytesTotal = prometheus.NewDesc(
		"scsibot_bytes_total",
		"Bytes transferred during command data phases, by operation and direction.",
		[]string{"role", "operation", "direction"}, nil,
	)
	descCSWStatusTotal = prometheus.NewDesc(
		"scsibot_csw_status_total",
		"Command Status Wrapper status codes observed, by role.",
		[]string{"role", "status"}, nil,
	)
)

// Collector accumulates per-operation counters for a single host or target
// handle and exposes them as a Prometheus [prometheus.Collector].
type Collector struct {
	role Role

	mu       sync.Mutex
	commands map[commandKey]uint64
	bytes    map[bytesKey]uint64
	statuses map[uint8]uint64
}

type commandKey struct {
	operation string
	outcome   string
}

type bytesKey struct {
	operation string
	direction string
}

// New creates a Collector for the given role. Register it with a
// [prometheus.Registerer] to expose it.
func New(role Role) *Collector {
	return &Collector{
		role:     role,
		commands: make(map[commandKey]uint64),
		bytes:    make(map[bytesKey]uint64),
		statuses: make(map[uint8]uint64),
	}
}

// ObserveCommand records one occurrence of operation completing with
// outcome ("ok" or "error", conventionally).
func (c *Collector) ObserveCommand(operation, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[commandKey{operation, outcome}]++
}

// ObserveBytes records n bytes transferred for operation in the given
// direction ("in" or "out").
func (c *Collector) ObserveBytes(operation, direction string, n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytes[bytesKey{operation, direction}] += uint64(n)
}

// ObserveCSWStatus records one CSW with the given status byte.
func (c *Collector) ObserveCSWStatus(status uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[status]++
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descCommandsTotal
	ch <- descBytesTotal
	ch <- descCSWStatusTotal
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, v := range c.commands {
		ch <- prometheus.MustNewConstMetric(descCommandsTotal, prometheus.CounterValue,
			float64(v), string(c.role), k.operation, k.outcome)
	}
	for k, v := range c.bytes {
		ch <- prometheus.MustNewConstMetric(descBytesTotal, prometheus.CounterValue,
			float64(v), string(c.role), k.operation, k.direction)
	}
	for status, v := range c.statuses {
		ch <- prometheus.MustNewConstMetric(descCSWStatusTotal, prometheus.CounterValue,
			float64(v), string(c.role), statusLabel(status))
	}
}

// Snapshot is a point-in-time read of a Collector's accumulated counters,
// independent of Prometheus scraping.
type Snapshot struct {
	CommandsOK    uint64
	CommandsError uint64
	BytesIn       uint64
	BytesOut      uint64
}

// Snapshot aggregates the collector's current counters across all
// operations into a single read.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Snapshot
	for k, v := range c.commands {
		if k.outcome == "ok" {
			s.CommandsOK += v
		} else {
			s.CommandsError += v
		}
	}
	for k, v := range c.bytes {
		switch k.direction {
		case "in":
			s.BytesIn += v
		case "out":
			s.BytesOut += v
		}
	}
	return s
}

func statusLabel(status uint8) string {
	switch status {
	case 0:
		return "passed"
	case 1:
		return "failed"
	case 2:
		return "phase_error"
	default:
		return "unknown"
	}
}

var _ prometheus.Collector = (*Collector)(nil)
