package usecases

import (
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

const (
	DefaultMinInterval = 1200 * time.Millisecond
	DefaultMaxInterval = 10 * time.Second
)

// RealTimeSchedule derives the wait before an advance from the recorded time
// between two samples, divided by TimeScale and clamped to
// [MinInterval, MaxInterval]. A fixed tick is MinInterval == MaxInterval.
type RealTimeSchedule struct {
	TimeScale   float64
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultSchedule replays at recorded speed within 1.2s to 10s per segment.
func DefaultSchedule() RealTimeSchedule {
	return RealTimeSchedule{
		TimeScale:   1,
		MinInterval: DefaultMinInterval,
		MaxInterval: DefaultMaxInterval,
	}
}

// FixedSchedule advances every d regardless of timestamps.
func FixedSchedule(d time.Duration) RealTimeSchedule {
	return RealTimeSchedule{TimeScale: 1, MinInterval: d, MaxInterval: d}
}

// Interval returns how long to wait before moving from one sample to the next.
// The result is always positive.
func (s RealTimeSchedule) Interval(from, to domain.Sample) time.Duration {
	lo := s.MinInterval
	if lo <= 0 {
		lo = DefaultMinInterval
	}
	hi := s.MaxInterval
	if hi < lo {
		hi = lo
	}
	scale := s.TimeScale
	if scale <= 0 {
		scale = 1
	}

	d := float64(to.Timestamp.Sub(from.Timestamp)) / scale
	switch {
	case d < float64(lo):
		return lo
	case d > float64(hi):
		return hi
	}
	return time.Duration(d)
}

// PlaybackDriver owns the replay cursor and the advance timer. It is not safe
// for concurrent use; timer callbacks must be serialised with method calls by
// the clock it is given.
type PlaybackDriver struct {
	clk      clock.Clock
	route    *RouteStore
	schedule RealTimeSchedule

	state domain.PlaybackState
	timer *clock.Timer
	gen   uint64

	onAdvance func(prev, index int)
	onState   func(domain.PlaybackState)
}

// NewPlaybackDriver creates a paused driver at index 0.
func NewPlaybackDriver(clk clock.Clock, route *RouteStore, schedule RealTimeSchedule) *PlaybackDriver {
	return &PlaybackDriver{clk: clk, route: route, schedule: schedule}
}

// OnAdvance registers fn to run after every index increment, while the driver
// still reports Playing.
func (d *PlaybackDriver) OnAdvance(fn func(prev, index int)) {
	d.onAdvance = fn
}

// OnStateChange registers fn to run whenever IsPlaying flips.
func (d *PlaybackDriver) OnStateChange(fn func(domain.PlaybackState)) {
	d.onState = fn
}

// State returns the current cursor.
func (d *PlaybackDriver) State() domain.PlaybackState {
	return d.state
}

// Schedule returns the pacing policy.
func (d *PlaybackDriver) Schedule() RealTimeSchedule {
	return d.schedule
}

// TogglePlay flips between Paused and Playing. Starting is a no-op when the
// cursor already sits on the last sample or the route has fewer than two.
func (d *PlaybackDriver) TogglePlay() domain.PlaybackState {
	if d.state.IsPlaying {
		d.cancel()
		d.setPlaying(false)
		return d.state
	}
	if d.route.Len() < 2 || d.state.CurrentIndex >= d.route.LastIndex() {
		return d.state
	}
	d.setPlaying(true)
	d.scheduleNext()
	return d.state
}

// Reset pauses and rewinds to the first sample.
func (d *PlaybackDriver) Reset() domain.PlaybackState {
	d.cancel()
	wasPlaying := d.state.IsPlaying
	d.state = domain.PlaybackState{}
	if wasPlaying && d.onState != nil {
		d.onState(d.state)
	}
	return d.state
}

// Stop cancels the pending advance without touching the cursor.
func (d *PlaybackDriver) Stop() {
	d.cancel()
}

// NextInterval reports the wait before the next advance, if one is pending.
func (d *PlaybackDriver) NextInterval() (time.Duration, bool) {
	if !d.state.IsPlaying {
		return 0, false
	}
	from, ok := d.route.Current(d.state.CurrentIndex)
	if !ok {
		return 0, false
	}
	to, _ := d.route.Next(d.state.CurrentIndex)
	return d.schedule.Interval(from, to), true
}

func (d *PlaybackDriver) scheduleNext() {
	wait, ok := d.NextInterval()
	if !ok {
		return
	}
	d.gen++
	gen := d.gen
	d.timer = d.clk.AfterFunc(wait, func() { d.advance(gen) })
}

func (d *PlaybackDriver) advance(gen uint64) {
	// A cancel may have raced the timer firing.
	if gen != d.gen || !d.state.IsPlaying {
		return
	}
	d.timer = nil

	last := d.route.LastIndex()
	if d.state.CurrentIndex >= last {
		d.setPlaying(false)
		return
	}

	prev := d.state.CurrentIndex
	d.state.CurrentIndex++
	if d.onAdvance != nil {
		d.onAdvance(prev, d.state.CurrentIndex)
	}

	if d.state.CurrentIndex >= last {
		d.setPlaying(false)
		return
	}
	d.scheduleNext()
}

func (d *PlaybackDriver) cancel() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *PlaybackDriver) setPlaying(playing bool) {
	if d.state.IsPlaying == playing {
		return
	}
	d.state.IsPlaying = playing
	if d.onState != nil {
		d.onState(d.state)
	}
}
