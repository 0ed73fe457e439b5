// Package monitor glues interface enumeration, classification and
// sampling onto a single periodic tick timeline.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/shini4i/netgauge/internal/netiface"
	"github.com/shini4i/netgauge/internal/sampler"
	"github.com/shini4i/netgauge/internal/stats"
)

// PollInterval is the fixed interval between sampling ticks.
const PollInterval = time.Second

// ErrUnknownInterface is returned when a selection request names an
// interface that is not in the current candidate list.
var ErrUnknownInterface = errors.New("unknown interface")

// ErrStopped is returned when an operation is requested on a stopped
// monitor.
var ErrStopped = errors.New("monitor is stopped")

// Reason explains an unavailable notification.
type Reason string

const (
	// ReasonNoInterface means classification produced no candidates.
	ReasonNoInterface Reason = "no_interface"
	// ReasonReadFailure means the active interface stopped reporting
	// counters and re-selection is in progress.
	ReasonReadFailure Reason = "read_failure"
)

// Callbacks contains the notification hooks invoked by the monitor. All
// callbacks run outside the monitor's lock, so they may call back into
// it. A nil callback is simply skipped.
type Callbacks struct {
	// OnUpdate delivers a fresh throughput snapshot.
	OnUpdate func(stats.Snapshot)
	// OnNoData signals a tick that only established a counter baseline;
	// it must not be rendered as zero traffic.
	OnNoData func()
	// OnUnavailable signals that no interface is currently measurable.
	OnUnavailable func(Reason)
	// OnCandidates delivers the candidate list whenever it changes.
	OnCandidates func([]netiface.Descriptor)
	// OnSelectionChange signals that the active interface switched.
	OnSelectionChange func(netiface.Descriptor)
}

// Monitor owns the sampling timeline for one host: a fixed 1-second tick
// drives the sampler, read failures trigger re-selection against a fresh
// snapshot, and manual refresh or selection requests are serialized with
// the ticks so no two passes ever mutate the same baseline concurrently.
type Monitor struct {
	enumerator netiface.Enumerator
	smp        *sampler.Sampler
	clk        clock.Clock
	platform   netiface.Platform
	callbacks  Callbacks
	preferred  string

	mu            sync.Mutex
	candidates    []netiface.Descriptor
	candidateKeys []string
	last          stats.Snapshot
	hasLast       bool
	started       bool
	stopped       bool

	stopOnce sync.Once
	stopChan chan struct{}
}

// Option configures optional Monitor collaborators.
type Option func(*Monitor)

// WithClock substitutes the wall clock, primarily for tests.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clk = c }
}

// WithPlatform overrides the detected host platform for rule selection.
func WithPlatform(p netiface.Platform) Option {
	return func(m *Monitor) { m.platform = p }
}

// WithPreferred seeds the interface key to prefer on the first
// selection. It is consulted only while nothing has been selected yet;
// later selections follow the usual re-selection rules.
func WithPreferred(key string) Option {
	return func(m *Monitor) { m.preferred = key }
}

// New creates a monitor wired to the given collaborators.
func New(enumerator netiface.Enumerator, reader sampler.CounterReader, callbacks Callbacks, opts ...Option) *Monitor {
	m := &Monitor{
		enumerator: enumerator,
		smp:        sampler.New(reader),
		clk:        clock.New(),
		platform:   netiface.CurrentPlatform(),
		callbacks:  callbacks,
		stopChan:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start performs the initial enumeration and selection synchronously,
// then launches the tick loop. Calling Start more than once is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started || m.stopped {
		m.mu.Unlock()
		return
	}
	m.started = true
	emit := m.refreshLocked(context.Background(), m.clk.Now())
	m.mu.Unlock()

	emit()

	// The ticker is created here rather than inside the goroutine so the
	// tick timeline exists as soon as Start returns.
	ticker := m.clk.Ticker(PollInterval)
	go m.run(ticker)
	slog.Info("Monitor started", "platform", m.platform)
}

// Stop halts the tick loop. It is idempotent and safe to call from any
// goroutine. A tick already in flight may finish its sampling pass, but
// its result is discarded once the stopped flag is set.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
		close(m.stopChan)
		slog.Info("Monitor stopped")
	})
}

// Refresh re-enumerates the interface table, publishes the fresh
// candidate list and re-resolves the active selection, preferring the
// currently tracked interface when it is still present.
func (m *Monitor) Refresh() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	emit := m.refreshLocked(context.Background(), m.clk.Now())
	m.mu.Unlock()

	emit()
	return nil
}

// Select switches monitoring to the candidate with the given stable key.
// Selecting the already-active interface is a no-op.
func (m *Monitor) Select(key string) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}

	var chosen netiface.Descriptor
	found := false
	for _, d := range m.candidates {
		if d.Key() == key {
			chosen = d
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return ErrUnknownInterface
	}

	if active, bound := m.smp.Active(); bound && active.Key() == key {
		m.mu.Unlock()
		return nil
	}

	m.smp.Select(context.Background(), chosen, m.clk.Now())
	m.clearLastLocked()
	cb := m.callbacks.OnSelectionChange
	m.mu.Unlock()

	if cb != nil {
		cb(chosen)
	}
	return nil
}

// Candidates returns a copy of the current candidate list.
func (m *Monitor) Candidates() []netiface.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]netiface.Descriptor, len(m.candidates))
	copy(out, m.candidates)
	return out
}

// Active returns the currently tracked interface descriptor.
func (m *Monitor) Active() (netiface.Descriptor, bool) {
	return m.smp.Active()
}

// State returns the sampler state.
func (m *Monitor) State() sampler.State {
	return m.smp.State()
}

// Totals returns the session totals for the active interface.
func (m *Monitor) Totals() sampler.Totals {
	return m.smp.Totals()
}

// LastSnapshot returns the most recent throughput snapshot, if any has
// been produced since the last selection change.
func (m *Monitor) LastSnapshot() (stats.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasLast
}

// run owns the ticker goroutine. Ticker semantics drop missed ticks, so
// a slow pass never causes a burst of catch-up samples.
func (m *Monitor) run(ticker *clock.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case now := <-ticker.C:
			m.tick(now)
		}
	}
}

// tick runs one sampling pass and emits the resulting notifications
// after releasing the lock.
func (m *Monitor) tick(now time.Time) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}

	ctx := context.Background()
	res := m.smp.Tick(ctx, now)

	var emit func()
	switch res.Outcome {
	case sampler.OutcomeUpdated:
		snap := m.snapshotLocked(res, now)
		m.last = snap
		m.hasLast = true
		cb := m.callbacks.OnUpdate
		emit = func() {
			if cb != nil {
				cb(snap)
			}
		}

	case sampler.OutcomeNoData:
		cb := m.callbacks.OnNoData
		emit = func() {
			if cb != nil {
				cb()
			}
		}

	case sampler.OutcomeUnavailable:
		if res.Err != nil {
			slog.Debug("Counter read failed, reselecting", "error", res.Err)
		}
		emit = m.reselectLocked(ctx, now, res.Err != nil)
	}
	m.mu.Unlock()

	// Re-check under the lock so a result computed before Stop landed is
	// discarded instead of delivered.
	m.mu.Lock()
	stopped := m.stopped
	m.mu.Unlock()
	if !stopped && emit != nil {
		emit()
	}
}

// refreshLocked re-enumerates and re-resolves the selection, preferring
// the previous interface. The caller holds mu; the returned closure
// performs the notifications and is never nil.
func (m *Monitor) refreshLocked(ctx context.Context, now time.Time) func() {
	candidatesChanged := m.enumerateLocked(ctx)

	previous := m.smp.LastKey()
	if previous == "" {
		previous = m.preferred
	}

	chosen, ok := netiface.Reselect(m.candidates, previous)
	if !ok {
		return m.unavailableEmitter(candidatesChanged, ReasonNoInterface)
	}

	active, bound := m.smp.Active()
	if bound && active.Key() == chosen.Key() {
		// The tracked interface persisted; keep its baseline and totals
		// untouched.
		return m.candidatesEmitter(candidatesChanged)
	}

	changed := chosen.Key() != previous || !bound
	m.smp.Select(ctx, chosen, now)
	m.clearLastLocked()

	if !changed {
		return m.candidatesEmitter(candidatesChanged)
	}

	candidates := m.candidates
	cbCandidates := m.callbacks.OnCandidates
	cbSelection := m.callbacks.OnSelectionChange
	emitCandidates := candidatesChanged
	return func() {
		if emitCandidates && cbCandidates != nil {
			cbCandidates(candidates)
		}
		if cbSelection != nil {
			cbSelection(chosen)
		}
	}
}

// reselectLocked handles an unavailable tick: the tick itself is
// reported as unavailable, then the monitor re-enumerates and tries to
// bind an interface again, preferring the one that was just lost. The
// caller holds mu; the returned closure performs the notifications.
func (m *Monitor) reselectLocked(ctx context.Context, now time.Time, readFailed bool) func() {
	reason := ReasonNoInterface
	if readFailed {
		reason = ReasonReadFailure
	}

	candidatesChanged := m.enumerateLocked(ctx)

	chosen, ok := netiface.Reselect(m.candidates, m.smp.LastKey())
	if !ok {
		return m.unavailableEmitter(candidatesChanged, reason)
	}

	changed := chosen.Key() != m.smp.LastKey()
	m.smp.Select(ctx, chosen, now)
	m.clearLastLocked()

	candidates := m.candidates
	cbCandidates := m.callbacks.OnCandidates
	cbUnavailable := m.callbacks.OnUnavailable
	cbSelection := m.callbacks.OnSelectionChange
	emitCandidates := candidatesChanged
	return func() {
		if emitCandidates && cbCandidates != nil {
			cbCandidates(candidates)
		}
		if cbUnavailable != nil {
			cbUnavailable(reason)
		}
		if changed && cbSelection != nil {
			cbSelection(chosen)
		}
	}
}

// enumerateLocked refreshes the candidate list and reports whether it
// differs from the previous one. Enumeration failure degrades to an
// empty snapshot; it is never fatal.
func (m *Monitor) enumerateLocked(ctx context.Context) bool {
	descriptors, err := m.enumerator.Enumerate(ctx)
	if err != nil {
		slog.Warn("Interface enumeration failed", "error", err)
		descriptors = nil
	}

	candidates := netiface.Classify(m.platform, descriptors)
	keys := make([]string, len(candidates))
	for i, d := range candidates {
		keys[i] = d.Key()
	}

	changed := !equalKeys(keys, m.candidateKeys)
	m.candidates = candidates
	m.candidateKeys = keys
	return changed
}

// snapshotLocked builds a published snapshot from a tick result. The
// caller holds mu.
func (m *Monitor) snapshotLocked(res sampler.Result, now time.Time) stats.Snapshot {
	active, _ := m.smp.Active()
	return stats.Snapshot{
		InterfaceKey:   active.Key(),
		InterfaceName:  active.Name,
		RxBytesPerSec:  res.RxRate,
		TxBytesPerSec:  res.TxRate,
		SessionRxBytes: res.Totals.BytesRecv,
		SessionTxBytes: res.Totals.BytesSent,
		Timestamp:      now,
	}
}

// clearLastLocked drops the cached snapshot after a selection change so
// stale figures are never served for the new interface.
func (m *Monitor) clearLastLocked() {
	m.last = stats.Snapshot{}
	m.hasLast = false
}

// candidatesEmitter returns a closure emitting only the candidate-list
// notification when the list changed.
func (m *Monitor) candidatesEmitter(changed bool) func() {
	if !changed {
		return func() {}
	}
	candidates := m.candidates
	cb := m.callbacks.OnCandidates
	return func() {
		if cb != nil {
			cb(candidates)
		}
	}
}

// unavailableEmitter returns a closure emitting the candidate-list
// notification (when changed) followed by the unavailable signal.
func (m *Monitor) unavailableEmitter(candidatesChanged bool, reason Reason) func() {
	candidates := m.candidates
	cbCandidates := m.callbacks.OnCandidates
	cbUnavailable := m.callbacks.OnUnavailable
	return func() {
		if candidatesChanged && cbCandidates != nil {
			cbCandidates(candidates)
		}
		if cbUnavailable != nil {
			cbUnavailable(reason)
		}
	}
}

// equalKeys reports whether two key slices are identical.
func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
