package usecases_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/usecases"
)

// --- Recording MapView ---

type viewCall struct {
	op       string
	id       string
	coords   [][2]float64
	pos      domain.GeoPoint
	rotation float64
	bounds   domain.Bounds
	padding  int
	animated bool
	zoom     int
}

type recordingView struct {
	mu     sync.Mutex
	calls  []viewCall
	panErr error
}

func (v *recordingView) record(c viewCall) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, c)
}

func (v *recordingView) RenderPolyline(ctx context.Context, id string, coords [][2]float64, style domain.PolylineStyle) error {
	v.record(viewCall{op: "polyline", id: id, coords: coords})
	return nil
}

func (v *recordingView) RenderMarker(ctx context.Context, pos domain.GeoPoint, rotation float64, icon string) error {
	v.record(viewCall{op: "marker", pos: pos, rotation: rotation})
	return nil
}

func (v *recordingView) FitViewport(ctx context.Context, bounds domain.Bounds, padding int) error {
	v.record(viewCall{op: "fit", bounds: bounds, padding: padding})
	return nil
}

func (v *recordingView) PanViewport(ctx context.Context, pos domain.GeoPoint, animated bool) error {
	v.record(viewCall{op: "pan", pos: pos, animated: animated})
	return v.panErr
}

func (v *recordingView) SetZoom(ctx context.Context, level int) error {
	v.record(viewCall{op: "zoom", zoom: level})
	return nil
}

func (v *recordingView) count(op string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for _, c := range v.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

func (v *recordingView) last(op string) (viewCall, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := len(v.calls) - 1; i >= 0; i-- {
		if v.calls[i].op == op {
			return v.calls[i], true
		}
	}
	return viewCall{}, false
}

func (v *recordingView) lastPolyline(id string) [][2]float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := len(v.calls) - 1; i >= 0; i-- {
		if v.calls[i].op == "polyline" && v.calls[i].id == id {
			return v.calls[i].coords
		}
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	statuses []domain.ReplayStatus
}

func (m *mockPublisher) PublishStatus(ctx context.Context, st *domain.ReplayStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, *st)
	return nil
}

// --- Helpers ---

type replayFixture struct {
	svc   *usecases.ReplayService
	clock *clock.Mock
	view  *recordingView
	pub   *mockPublisher
	src   *mockSource
}

func newReplayFixture(t *testing.T) *replayFixture {
	t.Helper()
	mock := clock.NewMock()
	route := testRoute(mock.Now())
	f := &replayFixture{
		clock: mock,
		view:  &recordingView{},
		pub:   &mockPublisher{},
		src:   &mockSource{loadFn: func(ctx context.Context) (domain.Route, error) { return route, nil }},
	}
	f.svc = usecases.NewReplayService(mock, f.src, f.view, f.pub, usecases.DefaultReplayOptions(), discardLogger())
	if err := f.svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(f.svc.Close)
	return f
}

// --- Tests ---

func TestReplayService_EndToEnd(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	if f.view.count("fit") != 1 {
		t.Fatalf("expected the route framed once on load, got %d", f.view.count("fit"))
	}

	if st := f.svc.TogglePlay(ctx); !st.IsPlaying {
		t.Fatal("expected playing after toggle")
	}
	f.clock.Add(10 * time.Second)

	st := f.svc.Status()
	if st.CurrentIndex != 1 || !st.IsPlaying {
		t.Fatalf("expected index 1 while playing, got %+v", st.PlaybackState)
	}

	full, traveled := f.svc.Coordinates()
	if len(full) != 3 {
		t.Errorf("expected full length 3, got %d", len(full))
	}
	want := [][2]float64{{0, 0}, {0, 1}}
	if !reflect.DeepEqual(traveled, want) {
		t.Errorf("expected traveled %v, got %v", want, traveled)
	}
	if got := f.view.lastPolyline(usecases.PolylineTraveled); !reflect.DeepEqual(got, want) {
		t.Errorf("expected rendered traveled %v, got %v", want, got)
	}

	frame, ok := f.svc.Frame()
	if !ok {
		t.Fatal("expected the first segment to be animating")
	}
	if math.Abs(frame.Heading-90) > 1e-6 {
		t.Errorf("expected heading ~90, got %v", frame.Heading)
	}
	if math.Abs(st.Rotation-180) > 1e-6 {
		t.Errorf("expected rotation ~180, got %v", st.Rotation)
	}

	// 111 km in 60 s.
	if st.SpeedKmH < 6600 || st.SpeedKmH > 6700 {
		t.Errorf("unexpected speed %v", st.SpeedKmH)
	}

	f.clock.Add(2 * time.Second)
	if _, ok := f.svc.Frame(); ok {
		t.Error("expected animation to have finished")
	}
	if m := f.svc.Status().Marker; m != (domain.GeoPoint{Lat: 0, Lng: 1}) {
		t.Errorf("expected marker at (0,1), got %v", m)
	}

	if pan, ok := f.view.last("pan"); !ok || pan.pos != (domain.GeoPoint{Lat: 0, Lng: 1}) {
		t.Errorf("expected follow pan to (0,1), got %+v", pan)
	}
	if zoom, _ := f.view.last("zoom"); zoom.zoom != 18 {
		t.Errorf("expected follow zoom 18, got %d", zoom.zoom)
	}
}

func TestReplayService_AutoPausesAtEnd(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	f.svc.TogglePlay(ctx)
	f.clock.Add(10 * time.Second)
	f.clock.Add(10 * time.Second)

	st := f.svc.Status()
	if st.CurrentIndex != 2 || st.IsPlaying {
		t.Fatalf("expected paused at index 2, got %+v", st.PlaybackState)
	}
	if st := f.svc.TogglePlay(ctx); st.IsPlaying {
		t.Error("expected toggle at the end to be a no-op")
	}

	f.pub.mu.Lock()
	last := f.pub.statuses[len(f.pub.statuses)-1]
	f.pub.mu.Unlock()
	if last.IsPlaying || last.CurrentIndex != 2 {
		t.Errorf("expected final published status paused at 2, got %+v", last.PlaybackState)
	}
}

func TestReplayService_InteractionLatchesFollow(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	if !f.svc.MarkInteraction(ctx, usecases.InteractionDragStart) {
		t.Fatal("expected dragstart to be recognised")
	}
	f.svc.TogglePlay(ctx)
	f.clock.Add(10 * time.Second)
	f.clock.Add(10 * time.Second)

	if n := f.view.count("pan"); n != 0 {
		t.Errorf("expected no pans after a drag, got %d", n)
	}
	if f.svc.Status().Following {
		t.Error("expected status to report follow disabled")
	}

	// Reset keeps the latch, reload clears it.
	f.svc.Reset(ctx)
	if f.svc.Status().Following {
		t.Error("expected latch to survive reset")
	}
	if err := f.svc.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !f.svc.Status().Following {
		t.Error("expected reload to re-enable follow")
	}
}

func TestReplayService_Reset(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	f.svc.TogglePlay(ctx)
	f.clock.Add(10 * time.Second)

	st := f.svc.Reset(ctx)
	if st.PlaybackState != (domain.PlaybackState{}) {
		t.Fatalf("expected {0 false}, got %+v", st.PlaybackState)
	}
	if st.Marker != (domain.GeoPoint{}) {
		t.Errorf("expected marker back at the first sample, got %v", st.Marker)
	}
	if got := f.view.lastPolyline(usecases.PolylineTraveled); len(got) != 1 {
		t.Errorf("expected traveled line of one point, got %v", got)
	}

	f.clock.Add(time.Minute)
	if idx := f.svc.Status().CurrentIndex; idx != 0 {
		t.Errorf("expected no advance after reset, got index %d", idx)
	}
}

func TestReplayService_ReloadFailureKeepsRoute(t *testing.T) {
	f := newReplayFixture(t)
	boom := errors.New("connection refused")
	f.src.loadFn = func(ctx context.Context) (domain.Route, error) { return nil, boom }

	if err := f.svc.Reload(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if n := f.svc.Status().Total; n != 3 {
		t.Errorf("expected previous route kept, got %d samples", n)
	}
	if _, err := f.svc.LastLoad(); !errors.Is(err, boom) {
		t.Errorf("expected last load error recorded, got %v", err)
	}
}

func TestReplayService_EmptyRouteDegrades(t *testing.T) {
	mock := clock.NewMock()
	view := &recordingView{}
	src := &mockSource{loadFn: func(ctx context.Context) (domain.Route, error) { return nil, errors.New("404") }}
	svc := usecases.NewReplayService(mock, src, view, nil, usecases.DefaultReplayOptions(), discardLogger())
	defer svc.Close()
	ctx := context.Background()

	if err := svc.Load(ctx); err == nil {
		t.Fatal("expected load error")
	}

	st := svc.TogglePlay(ctx)
	if st.IsPlaying || st.Current != nil || st.SpeedKmH != 0 {
		t.Errorf("expected inert status, got %+v", st)
	}
	full, traveled := svc.Coordinates()
	if len(full) != 0 || len(traveled) != 0 {
		t.Errorf("expected empty lines, got %v %v", full, traveled)
	}
	if svc.Snapshot().Marker != nil {
		t.Error("expected no marker without a route")
	}
	if view.count("fit") != 0 {
		t.Error("expected no fit without a route")
	}
}

func TestReplayService_Execute(t *testing.T) {
	f := newReplayFixture(t)
	ctx := context.Background()

	if err := f.svc.Execute(ctx, domain.CommandToggle); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !f.svc.Status().IsPlaying {
		t.Error("expected playing")
	}
	if err := f.svc.Execute(ctx, domain.CommandReset); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if f.svc.Status().IsPlaying {
		t.Error("expected paused after reset")
	}
	if err := f.svc.Execute(ctx, "rewind"); !errors.Is(err, usecases.ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestReplayService_CloseStopsCallbacks(t *testing.T) {
	f := newReplayFixture(t)

	f.svc.TogglePlay(context.Background())
	f.clock.Add(10 * time.Second)
	f.svc.Close()

	f.view.mu.Lock()
	before := len(f.view.calls)
	f.view.mu.Unlock()

	f.clock.Add(time.Minute)

	f.view.mu.Lock()
	after := len(f.view.calls)
	f.view.mu.Unlock()
	if after != before {
		t.Errorf("expected no view calls after close, got %d more", after-before)
	}
}

func TestReplayService_Snapshot(t *testing.T) {
	f := newReplayFixture(t)

	snap := f.svc.Snapshot()
	if len(snap.Full) != 3 || len(snap.Traveled) != 1 {
		t.Errorf("unexpected lines %v %v", snap.Full, snap.Traveled)
	}
	if snap.Bounds == nil || *snap.Bounds != (domain.Bounds{MaxLat: 1, MaxLng: 1}) {
		t.Errorf("unexpected bounds %+v", snap.Bounds)
	}
	if snap.Marker == nil || *snap.Marker != (domain.GeoPoint{}) {
		t.Errorf("expected marker at the first sample, got %v", snap.Marker)
	}
	if snap.Padding != 50 || snap.Zoom != 17 || snap.Icon != usecases.DefaultMarkerIcon {
		t.Errorf("unexpected presentation %+v", snap)
	}
}
