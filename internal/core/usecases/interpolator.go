package usecases

import (
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/pkg/geospatial"
)

const (
	DefaultAnimationDuration = 1000 * time.Millisecond
	DefaultFrameInterval     = 16 * time.Millisecond

	// MarkerRotationOffset corrects for the car glyph facing east at 0°.
	MarkerRotationOffset = 90.0
)

// EaseInOutQuad accelerates over the first half of the segment and
// decelerates over the second.
func EaseInOutQuad(f float64) float64 {
	if f < 0.5 {
		return 2 * f * f
	}
	return 1 - 2*(1-f)*(1-f)
}

// Fraction returns elapsed/duration clamped to [0, 1]. A non-positive
// duration is already complete.
func Fraction(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	f := float64(elapsed) / float64(duration)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// Lerp interpolates latitude and longitude independently.
func Lerp(a, b domain.GeoPoint, f float64) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lng: a.Lng + (b.Lng-a.Lng)*f,
	}
}

// Interpolator moves the marker smoothly along one segment at a time. It is
// not safe for concurrent use; see PlaybackDriver.
type Interpolator struct {
	clk           clock.Clock
	duration      time.Duration
	frameInterval time.Duration

	active   *domain.AnimationFrame
	position domain.GeoPoint
	heading  float64
	timer    *clock.Timer
	gen      uint64

	onFrame func(pos domain.GeoPoint, rotation float64)
}

// NewInterpolator creates an idle interpolator. Zero durations fall back to
// the defaults.
func NewInterpolator(clk clock.Clock, duration, frameInterval time.Duration) *Interpolator {
	if duration <= 0 {
		duration = DefaultAnimationDuration
	}
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &Interpolator{clk: clk, duration: duration, frameInterval: frameInterval}
}

// OnFrame registers fn to receive every rendered position.
func (i *Interpolator) OnFrame(fn func(pos domain.GeoPoint, rotation float64)) {
	i.onFrame = fn
}

// Animate starts moving from start to end, superseding any animation in
// flight. A zero-length segment snaps to end and keeps the previous heading.
func (i *Interpolator) Animate(start, end domain.GeoPoint) {
	i.cancel()

	if start == end {
		i.position = end
		i.emit()
		return
	}

	i.heading = geospatial.BearingDegrees(start, end)
	i.active = &domain.AnimationFrame{
		Start:     start,
		End:       end,
		StartedAt: i.clk.Now(),
		Duration:  i.duration,
		Heading:   i.heading,
	}
	i.position = start
	i.emit()
	i.scheduleFrame()
}

// Place moves the marker to pos without animating. The heading is kept.
func (i *Interpolator) Place(pos domain.GeoPoint) {
	i.cancel()
	i.position = pos
	i.emit()
}

// Stop cancels any animation in flight, leaving the marker where it is.
func (i *Interpolator) Stop() {
	i.cancel()
}

// ResetHeading points the marker back to north for a freshly loaded route.
func (i *Interpolator) ResetHeading() {
	i.heading = 0
}

// Position returns the last rendered position.
func (i *Interpolator) Position() domain.GeoPoint {
	return i.position
}

// Heading returns the bearing of the latest non-degenerate segment.
func (i *Interpolator) Heading() float64 {
	return i.heading
}

// Rotation returns the marker rotation, heading plus the glyph offset.
func (i *Interpolator) Rotation() float64 {
	return i.heading + MarkerRotationOffset
}

// Frame returns the animation in flight, if any.
func (i *Interpolator) Frame() (domain.AnimationFrame, bool) {
	if i.active == nil {
		return domain.AnimationFrame{}, false
	}
	return *i.active, true
}

// Active reports whether a segment is animating.
func (i *Interpolator) Active() bool {
	return i.active != nil
}

func (i *Interpolator) scheduleFrame() {
	gen := i.gen
	i.timer = i.clk.AfterFunc(i.frameInterval, func() { i.step(gen) })
}

func (i *Interpolator) step(gen uint64) {
	if gen != i.gen || i.active == nil {
		return
	}

	f := Fraction(i.clk.Now().Sub(i.active.StartedAt), i.active.Duration)
	eased := EaseInOutQuad(f)
	i.active.Fraction = f
	i.active.Eased = eased

	if f >= 1 {
		i.position = i.active.End
		i.active = nil
		i.timer = nil
		i.emit()
		return
	}

	i.position = Lerp(i.active.Start, i.active.End, eased)
	i.emit()
	i.scheduleFrame()
}

func (i *Interpolator) cancel() {
	i.gen++
	i.active = nil
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}

func (i *Interpolator) emit() {
	if i.onFrame != nil {
		i.onFrame(i.position, i.Rotation())
	}
}
