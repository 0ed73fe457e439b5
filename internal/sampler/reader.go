package sampler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

// readTimeout bounds a single counter read. A stalled OS query is
// reported as a read failure instead of blocking the tick timeline.
const readTimeout = time.Second

// ErrCounterUnavailable is returned when the OS reports no counters for
// the requested interface.
var ErrCounterUnavailable = errors.New("interface counters unavailable")

// Counters is one cumulative byte-counter reading for an interface.
// The OS counters increase monotonically except across driver resets,
// which the sampler tolerates by clamping deltas.
type Counters struct {
	BytesRecv uint64
	BytesSent uint64
}

// CounterReader reads cumulative byte counters for a named interface.
// A per-interface read failure is a first-class sampler input, not a
// fatal error.
type CounterReader interface {
	Read(ctx context.Context, name string) (Counters, error)
}

// SystemReader reads counters through the OS statistics layer.
type SystemReader struct{}

// NewSystemReader creates a counter reader backed by the OS statistics.
func NewSystemReader() *SystemReader {
	return &SystemReader{}
}

// Ensure SystemReader implements the CounterReader interface.
var _ CounterReader = (*SystemReader)(nil)

// Read returns the cumulative byte counters for the named interface.
// An interface that disappeared from the counter table yields
// ErrCounterUnavailable.
func (r *SystemReader) Read(ctx context.Context, name string) (Counters, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	stats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return Counters{}, fmt.Errorf("failed to read interface counters: %w", err)
	}

	for _, s := range stats {
		if s.Name == name {
			return Counters{BytesRecv: s.BytesRecv, BytesSent: s.BytesSent}, nil
		}
	}

	return Counters{}, fmt.Errorf("%w: %s", ErrCounterUnavailable, name)
}
