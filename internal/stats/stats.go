// Package stats defines the throughput snapshot shared by the
// presentation surfaces, plus helpers to format it for humans.
package stats

import "time"

// Snapshot is one published throughput measurement for the active
// interface.
type Snapshot struct {
	// InterfaceKey is the stable identity (name plus description) of the
	// measured interface.
	InterfaceKey string `json:"interface_key"`
	// InterfaceName is the OS-assigned name of the measured interface.
	InterfaceName string `json:"interface_name"`

	// RxBytesPerSec is the current receive rate in bytes per second.
	RxBytesPerSec float64 `json:"rx_bytes_per_sec"`
	// TxBytesPerSec is the current transmit rate in bytes per second.
	TxBytesPerSec float64 `json:"tx_bytes_per_sec"`

	// SessionRxBytes is the total bytes received since the interface was
	// selected.
	SessionRxBytes uint64 `json:"session_rx_bytes"`
	// SessionTxBytes is the total bytes transmitted since the interface
	// was selected.
	SessionTxBytes uint64 `json:"session_tx_bytes"`

	// Timestamp is when the measurement was taken.
	Timestamp time.Time `json:"timestamp"`
}
