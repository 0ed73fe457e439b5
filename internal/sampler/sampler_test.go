package sampler

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shini4i/netgauge/internal/netiface"
)

// fakeReader serves counters from a mutable map and can be switched into
// a failing mode mid-test.
type fakeReader struct {
	mu       sync.Mutex
	counters map[string]Counters
	err      error
	reads    int
}

func newFakeReader() *fakeReader {
	return &fakeReader{counters: make(map[string]Counters)}
}

func (f *fakeReader) Read(_ context.Context, name string) (Counters, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads++
	if f.err != nil {
		return Counters{}, f.err
	}
	c, ok := f.counters[name]
	if !ok {
		return Counters{}, ErrCounterUnavailable
	}
	return c, nil
}

func (f *fakeReader) set(name string, recv, sent uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[name] = Counters{BytesRecv: recv, BytesSent: sent}
}

func (f *fakeReader) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeReader) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

var (
	ethDescriptor  = netiface.Descriptor{Name: "eth0", Kind: netiface.KindEthernet, Status: netiface.StatusUp, Platform: netiface.PlatformLinux}
	wlanDescriptor = netiface.Descriptor{Name: "wlan0", Kind: netiface.KindWireless80211, Status: netiface.StatusUp, Platform: netiface.PlatformLinux}
)

func TestSampler_StartsUnbound(t *testing.T) {
	s := New(newFakeReader())

	assert.Equal(t, StateUnbound, s.State())
	_, bound := s.Active()
	assert.False(t, bound)

	res := s.Tick(context.Background(), time.Now())
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	assert.NoError(t, res.Err)
}

func TestSampler_SelectEstablishesBaseline(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 1000, 500)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)

	assert.Equal(t, StateBaselined, s.State())
	active, bound := s.Active()
	require.True(t, bound)
	assert.Equal(t, "eth0", active.Name)

	// A tick in the same instant as selection never yields a rate; it
	// only re-establishes the baseline.
	res := s.Tick(context.Background(), t0)
	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.Zero(t, res.RxRate)
	assert.Zero(t, res.TxRate)
	assert.Equal(t, StateTracking, s.State())
}

func TestSampler_ComputesRates(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 1000, 400)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)

	// First tick converts the baseline into a tracking point.
	res := s.Tick(context.Background(), t0)
	require.Equal(t, OutcomeNoData, res.Outcome)

	// 1000 bytes received and 300 sent over two seconds.
	reader.set("eth0", 2000, 700)
	res = s.Tick(context.Background(), t0.Add(2*time.Second))

	require.Equal(t, OutcomeUpdated, res.Outcome)
	assert.InDelta(t, 500.0, res.RxRate, 0.001)
	assert.InDelta(t, 150.0, res.TxRate, 0.001)
	assert.Equal(t, uint64(1000), res.Totals.BytesRecv)
	assert.Equal(t, uint64(300), res.Totals.BytesSent)
}

func TestSampler_CounterResetClampsToZero(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 5000, 5000)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	require.Equal(t, OutcomeNoData, s.Tick(context.Background(), t0).Outcome)

	// Driver reload dropped the counters below the baseline. The delta
	// clamps to zero instead of going negative or wrapping.
	reader.set("eth0", 100, 50)
	res := s.Tick(context.Background(), t0.Add(time.Second))

	require.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Zero(t, res.RxRate)
	assert.Zero(t, res.TxRate)
	assert.Zero(t, res.Totals.BytesRecv)
	assert.Zero(t, res.Totals.BytesSent)

	// The reset reading became the new baseline, so rates recover on the
	// next tick.
	reader.set("eth0", 1124, 562)
	res = s.Tick(context.Background(), t0.Add(2*time.Second))
	require.Equal(t, OutcomeUpdated, res.Outcome)
	assert.InDelta(t, 1024.0, res.RxRate, 0.001)
	assert.InDelta(t, 512.0, res.TxRate, 0.001)
}

func TestSampler_ClockAnomalyRebaselinesSilently(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 1000, 1000)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	require.Equal(t, OutcomeNoData, s.Tick(context.Background(), t0.Add(time.Second)).Outcome)

	// The clock went backwards (sleep/resume). No rate, no error, just a
	// fresh baseline.
	reader.set("eth0", 9000, 9000)
	res := s.Tick(context.Background(), t0.Add(time.Second).Add(-3*time.Second))
	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, StateTracking, s.State())

	// Zero elapsed time is the same anomaly.
	res = s.Tick(context.Background(), t0.Add(time.Second).Add(-3*time.Second))
	assert.Equal(t, OutcomeNoData, res.Outcome)
}

func TestSampler_ReadFailureUnbinds(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 1000, 1000)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	require.Equal(t, OutcomeNoData, s.Tick(context.Background(), t0).Outcome)

	reader.fail(errors.New("device went away"))
	res := s.Tick(context.Background(), t0.Add(time.Second))

	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	require.Error(t, res.Err)
	assert.Equal(t, StateUnbound, s.State())

	// Until a new selection is made every subsequent tick reports
	// Unavailable without touching the reader.
	before := reader.readCount()
	res = s.Tick(context.Background(), t0.Add(2*time.Second))
	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, before, reader.readCount())
}

func TestSampler_SelectReadFailureFallsBackToZeroBaseline(t *testing.T) {
	reader := newFakeReader()
	reader.fail(errors.New("not ready yet"))
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)

	// A transiently unreadable adapter still binds with a zero baseline.
	assert.Equal(t, StateBaselined, s.State())

	// The first successful tick repairs the baseline instead of
	// reporting the full cumulative counter as a burst.
	reader.fail(nil)
	reader.set("eth0", 1_000_000, 500_000)
	res := s.Tick(context.Background(), t0.Add(time.Second))
	assert.Equal(t, OutcomeNoData, res.Outcome)

	reader.set("eth0", 1_000_100, 500_050)
	res = s.Tick(context.Background(), t0.Add(2*time.Second))
	require.Equal(t, OutcomeUpdated, res.Outcome)
	assert.InDelta(t, 100.0, res.RxRate, 0.001)
	assert.InDelta(t, 50.0, res.TxRate, 0.001)
}

func TestSampler_TotalsResetOnInterfaceSwitch(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 0, 0)
	reader.set("wlan0", 0, 0)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	s.Tick(context.Background(), t0)
	reader.set("eth0", 4096, 2048)
	res := s.Tick(context.Background(), t0.Add(time.Second))
	require.Equal(t, uint64(4096), res.Totals.BytesRecv)

	// Switching to a different interface resets the totals to exactly
	// zero.
	s.Select(context.Background(), wlanDescriptor, t0.Add(2*time.Second))
	assert.Equal(t, Totals{}, s.Totals())

	// Re-selecting the same interface preserves them.
	reader.set("wlan0", 100, 100)
	s.Tick(context.Background(), t0.Add(3*time.Second))
	reader.set("wlan0", 612, 356)
	res = s.Tick(context.Background(), t0.Add(4*time.Second))
	require.Equal(t, uint64(512), res.Totals.BytesRecv)

	s.Select(context.Background(), wlanDescriptor, t0.Add(5*time.Second))
	assert.Equal(t, uint64(512), s.Totals().BytesRecv)
	assert.Equal(t, uint64(256), s.Totals().BytesSent)
}

func TestSampler_TotalsSurviveReadFailureOfSameInterface(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 0, 0)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	s.Tick(context.Background(), t0)
	reader.set("eth0", 1000, 1000)
	s.Tick(context.Background(), t0.Add(time.Second))
	require.Equal(t, uint64(1000), s.Totals().BytesRecv)

	// Transient failure unbinds but keeps the totals and the last key so
	// the owner can rebind the same adapter without losing the session.
	reader.fail(errors.New("asleep"))
	s.Tick(context.Background(), t0.Add(2*time.Second))
	require.Equal(t, StateUnbound, s.State())
	assert.Equal(t, ethDescriptor.Key(), s.LastKey())

	reader.fail(nil)
	s.Select(context.Background(), ethDescriptor, t0.Add(3*time.Second))
	assert.Equal(t, uint64(1000), s.Totals().BytesRecv)
}

func TestSampler_DeselectClearsSession(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 500, 500)
	s := New(reader)

	s.Select(context.Background(), ethDescriptor, time.Now())
	s.Deselect()

	assert.Equal(t, StateUnbound, s.State())
	assert.Empty(t, s.LastKey())
	assert.Equal(t, Totals{}, s.Totals())
	_, bound := s.Active()
	assert.False(t, bound)
}

func TestSampler_TotalsSaturateInsteadOfWrapping(t *testing.T) {
	reader := newFakeReader()
	reader.set("eth0", 0, 0)
	s := New(reader)

	t0 := time.Now()
	s.Select(context.Background(), ethDescriptor, t0)
	s.Tick(context.Background(), t0)

	reader.set("eth0", math.MaxUint64, 10)
	res := s.Tick(context.Background(), t0.Add(time.Second))
	require.Equal(t, uint64(math.MaxUint64), res.Totals.BytesRecv)

	// Another delta on top of a saturated total must not wrap around.
	reader.set("eth0", math.MaxUint64, 200)
	res = s.Tick(context.Background(), t0.Add(2*time.Second))
	assert.Equal(t, uint64(math.MaxUint64), res.Totals.BytesRecv)
	assert.Equal(t, uint64(200), res.Totals.BytesSent)
}

func TestClampedDelta(t *testing.T) {
	tests := []struct {
		name     string
		cur      uint64
		base     uint64
		expected uint64
	}{
		{"normal growth", 2000, 1000, 1000},
		{"no change", 1000, 1000, 0},
		{"counter reset", 100, 5000, 0},
		{"from zero", 42, 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, clampedDelta(tt.cur, tt.base))
		})
	}
}

func TestSaturatingAdd(t *testing.T) {
	tests := []struct {
		name     string
		total    uint64
		delta    uint64
		expected uint64
	}{
		{"normal add", 100, 28, 128},
		{"zero delta", 100, 0, 100},
		{"saturates at max", math.MaxUint64 - 10, 100, math.MaxUint64},
		{"exactly max", math.MaxUint64 - 100, 100, math.MaxUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, saturatingAdd(tt.total, tt.delta))
		})
	}
}
