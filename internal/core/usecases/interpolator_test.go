package usecases_test

import (
	"math"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/usecases"
)

func TestEaseInOutQuad(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{
		{0, 0}, {0.25, 0.125}, {0.5, 0.5}, {0.75, 0.875}, {1, 1},
	} {
		if got := usecases.EaseInOutQuad(tt.in); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("EaseInOutQuad(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}

	prev := 0.0
	for f := 0.0; f <= 1.0; f += 0.01 {
		got := usecases.EaseInOutQuad(f)
		if got < prev {
			t.Fatalf("not monotonic at %v: %v < %v", f, got, prev)
		}
		prev = got
	}
}

func TestFraction(t *testing.T) {
	d := time.Second
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{-time.Second, 0},
		{250 * time.Millisecond, 0.25},
		{d, 1},
		{3 * d, 1},
	}
	for _, tt := range tests {
		if got := usecases.Fraction(tt.elapsed, d); got != tt.want {
			t.Errorf("Fraction(%v): expected %v, got %v", tt.elapsed, tt.want, got)
		}
	}
	if got := usecases.Fraction(0, 0); got != 1 {
		t.Errorf("zero duration should be complete, got %v", got)
	}
}

type frame struct {
	pos      domain.GeoPoint
	rotation float64
}

func newInterpolator() (*usecases.Interpolator, *clock.Mock, *[]frame) {
	mock := clock.NewMock()
	i := usecases.NewInterpolator(mock, time.Second, 16*time.Millisecond)
	frames := &[]frame{}
	i.OnFrame(func(pos domain.GeoPoint, rotation float64) {
		*frames = append(*frames, frame{pos, rotation})
	})
	return i, mock, frames
}

func TestInterpolator_AnimatesAlongSegment(t *testing.T) {
	i, mock, frames := newInterpolator()
	start := domain.GeoPoint{Lat: 0, Lng: 0}
	end := domain.GeoPoint{Lat: 0, Lng: 1}

	i.Animate(start, end)

	f, ok := i.Frame()
	if !ok {
		t.Fatal("expected an active frame")
	}
	if f.Fraction != 0 || f.Start != start || f.End != end {
		t.Errorf("unexpected initial frame %+v", f)
	}
	if math.Abs(f.Heading-90) > 1e-6 {
		t.Errorf("expected heading 90, got %v", f.Heading)
	}

	mock.Add(500 * time.Millisecond)
	mid, ok := i.Frame()
	if !ok {
		t.Fatal("expected animation still running at half time")
	}
	if mid.Fraction <= 0 || mid.Fraction >= 1 {
		t.Errorf("expected fraction inside (0,1), got %v", mid.Fraction)
	}

	mock.Add(600 * time.Millisecond)
	if i.Active() {
		t.Fatal("expected animation to finish after its duration")
	}
	if i.Position() != end {
		t.Errorf("expected marker at %v, got %v", end, i.Position())
	}

	prevLng := -1.0
	for n, fr := range *frames {
		if fr.pos.Lat != 0 {
			t.Fatalf("frame %d left the segment: %v", n, fr.pos)
		}
		if fr.pos.Lng < prevLng || fr.pos.Lng > 1 {
			t.Fatalf("frame %d moved backwards or overshot: %v", n, fr.pos)
		}
		if fr.rotation != 180 {
			t.Fatalf("frame %d: expected rotation 180, got %v", n, fr.rotation)
		}
		prevLng = fr.pos.Lng
	}
	if len(*frames) < 10 {
		t.Errorf("expected many frames, got %d", len(*frames))
	}
}

func TestInterpolator_DegenerateSegmentSnaps(t *testing.T) {
	i, mock, frames := newInterpolator()

	i.Animate(domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 1})
	mock.Add(2 * time.Second)
	heading := i.Heading()
	rendered := len(*frames)

	p := domain.GeoPoint{Lat: 0, Lng: 1}
	i.Animate(p, p)

	if i.Active() {
		t.Fatal("expected no animation for a zero-length segment")
	}
	if i.Position() != p {
		t.Errorf("expected snap to %v, got %v", p, i.Position())
	}
	if i.Heading() != heading {
		t.Errorf("expected heading kept at %v, got %v", heading, i.Heading())
	}

	mock.Add(2 * time.Second)
	if got := len(*frames) - rendered; got != 1 {
		t.Errorf("expected exactly one snap render, got %d", got)
	}
}

func TestInterpolator_InitialHeadingIsNorth(t *testing.T) {
	i, _, _ := newInterpolator()
	p := domain.GeoPoint{Lat: 17.385044, Lng: 78.486671}
	i.Animate(p, p)
	if i.Heading() != 0 || i.Rotation() != usecases.MarkerRotationOffset {
		t.Errorf("expected heading 0 and rotation 90, got %v and %v", i.Heading(), i.Rotation())
	}
}

func TestInterpolator_NewSegmentSupersedesOld(t *testing.T) {
	i, mock, _ := newInterpolator()

	i.Animate(domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 1})
	mock.Add(200 * time.Millisecond)

	from := i.Position()
	to := domain.GeoPoint{Lat: 1, Lng: 1}
	i.Animate(from, to)

	f, ok := i.Frame()
	if !ok || f.Start != from || f.End != to {
		t.Fatalf("expected the new segment to be active, got %+v", f)
	}

	mock.Add(2 * time.Second)
	if i.Position() != to {
		t.Errorf("expected marker at %v, got %v", to, i.Position())
	}
}

func TestInterpolator_StopFreezesMarker(t *testing.T) {
	i, mock, frames := newInterpolator()

	i.Animate(domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 1})
	mock.Add(100 * time.Millisecond)
	i.Stop()
	pos := i.Position()
	rendered := len(*frames)

	mock.Add(2 * time.Second)
	if i.Position() != pos || len(*frames) != rendered {
		t.Error("expected no frames after Stop")
	}
}
