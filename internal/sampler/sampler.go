package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shini4i/netgauge/internal/netiface"
)

// Outcome classifies the result of a single sampling tick.
type Outcome string

const (
	// OutcomeUpdated carries fresh rate and total figures.
	OutcomeUpdated Outcome = "updated"
	// OutcomeNoData means the tick only (re)established the baseline; no
	// rate is computable and none must be displayed as zero traffic.
	OutcomeNoData Outcome = "no_data"
	// OutcomeUnavailable means no interface is bound, or the bound one
	// stopped reporting; the owner should reselect.
	OutcomeUnavailable Outcome = "unavailable"
)

// Totals holds the session byte totals accumulated since the last
// interface switch. They are monotonically non-decreasing between
// resets.
type Totals struct {
	// BytesRecv is the total bytes received since the last reset.
	BytesRecv uint64 `json:"bytes_recv"`
	// BytesSent is the total bytes transmitted since the last reset.
	BytesSent uint64 `json:"bytes_sent"`
}

// Result is the outcome of one sampling tick.
type Result struct {
	Outcome Outcome
	// RxRate and TxRate are bytes per second, valid for OutcomeUpdated
	// only.
	RxRate float64
	TxRate float64
	// Totals are the session totals after this tick.
	Totals Totals
	// Err carries the read failure behind OutcomeUnavailable, nil
	// otherwise.
	Err error
}

// Sampler is the rate engine for a single selected interface. It owns
// the counter baseline and the accumulated session totals, and advances
// a small state machine (Unbound, Baselined, Tracking) on every tick.
//
// The sampler is safe for concurrent use, but the intended driver is a
// single tick timeline: one goroutine calling Tick, with Select and
// Deselect serialized against it by the owner.
type Sampler struct {
	reader CounterReader

	mu         sync.RWMutex
	state      State
	active     netiface.Descriptor
	activeKey  string
	baseline   Counters
	baselineAt time.Time
	totals     Totals
}

// New creates a sampler in the Unbound state.
func New(reader CounterReader) *Sampler {
	return &Sampler{
		reader: reader,
		state:  StateUnbound,
	}
}

// Select binds the sampler to an interface and captures the counter
// baseline. A failed read is not an error here: a brand-new or waking
// adapter may be transiently unreadable, so the baseline falls back to
// zero and the first tick repairs it.
//
// Session totals reset exactly when the stable key changes; re-selecting
// the current interface preserves them.
func (s *Sampler) Select(ctx context.Context, d netiface.Descriptor, now time.Time) {
	counters, err := s.reader.Read(ctx, d.Name)
	if err != nil {
		slog.Debug("Counter read during selection failed, baseline starts at zero",
			"interface", d.Name, "error", err)
		counters = Counters{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if key := d.Key(); key != s.activeKey {
		s.totals = Totals{}
		s.activeKey = key
	}
	s.active = d
	s.baseline = counters
	s.baselineAt = now
	s.setStateLocked(StateBaselined)
}

// Deselect unbinds the sampler and discards the selection together with
// its session totals.
func (s *Sampler) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUnbound && s.activeKey == "" {
		return
	}

	s.active = netiface.Descriptor{}
	s.activeKey = ""
	s.baseline = Counters{}
	s.baselineAt = time.Time{}
	s.totals = Totals{}
	s.setStateLocked(StateUnbound)
}

// Tick consumes one timer tick: it reads the active interface's
// counters, computes clamped deltas against the baseline and advances
// the state machine.
//
// A read failure unbinds the sampler so the owner can reselect against a
// fresh snapshot; the totals and the last key survive the unbind in case
// the same interface comes back.
func (s *Sampler) Tick(ctx context.Context, now time.Time) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUnbound {
		return Result{Outcome: OutcomeUnavailable, Totals: s.totals}
	}

	counters, err := s.reader.Read(ctx, s.active.Name)
	if err != nil {
		readErr := fmt.Errorf("counter read for %s failed: %w", s.active.Name, err)
		s.active = netiface.Descriptor{}
		s.setStateLocked(StateUnbound)
		return Result{Outcome: OutcomeUnavailable, Totals: s.totals, Err: readErr}
	}

	elapsed := now.Sub(s.baselineAt)
	if s.state == StateBaselined || elapsed <= 0 {
		// First reading since selection, or the clock went backwards
		// (sleep/resume, manual adjustment). There is no meaningful
		// interval either way: store the baseline and report no data
		// instead of fabricating a rate.
		s.baseline = counters
		s.baselineAt = now
		s.setStateLocked(StateTracking)
		return Result{Outcome: OutcomeNoData, Totals: s.totals}
	}

	deltaRecv := clampedDelta(counters.BytesRecv, s.baseline.BytesRecv)
	deltaSent := clampedDelta(counters.BytesSent, s.baseline.BytesSent)

	s.totals.BytesRecv = saturatingAdd(s.totals.BytesRecv, deltaRecv)
	s.totals.BytesSent = saturatingAdd(s.totals.BytesSent, deltaSent)
	s.baseline = counters
	s.baselineAt = now

	seconds := elapsed.Seconds()
	return Result{
		Outcome: OutcomeUpdated,
		RxRate:  float64(deltaRecv) / seconds,
		TxRate:  float64(deltaSent) / seconds,
		Totals:  s.totals,
	}
}

// State returns the current sampling state.
func (s *Sampler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active returns the currently bound interface descriptor.
func (s *Sampler) Active() (netiface.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.state.IsBound()
}

// LastKey returns the stable key of the most recently bound interface.
// It survives a read-failure unbind so re-selection can prefer the same
// adapter; Deselect clears it.
func (s *Sampler) LastKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeKey
}

// Totals returns the session totals accumulated since the last switch.
func (s *Sampler) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals
}

// setStateLocked advances the state machine; the caller holds mu.
// Equal states are a no-op so repeated selections do not trip the
// transition table.
func (s *Sampler) setStateLocked(next State) {
	if s.state == next {
		return
	}
	if !IsValidTransition(s.state, next) {
		slog.Warn("Invalid sampler state transition", "from", s.state, "to", next)
		return
	}
	s.state = next
}

// clampedDelta returns cur-base clamped to zero when the counter went
// backwards (driver reload, 32-bit wraparound). A negative raw delta
// means no data this tick, never negative throughput.
func clampedDelta(cur, base uint64) uint64 {
	if cur < base {
		return 0
	}
	return cur - base
}

// saturatingAdd adds delta to total, clamping at the maximum
// representable value instead of wrapping.
func saturatingAdd(total, delta uint64) uint64 {
	if total > math.MaxUint64-delta {
		return math.MaxUint64
	}
	return total + delta
}
