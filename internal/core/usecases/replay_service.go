package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/facebookgo/clock"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/pkg/geospatial"
	"github.com/samirrijal/routereplay/internal/pkg/metrics"
)

// Polyline ids rendered on the map.
const (
	PolylineFull     = "full"
	PolylineTraveled = "traveled"
)

const DefaultMarkerIcon = "🚗"

// ErrUnknownCommand is returned by Execute for unrecognised commands.
var ErrUnknownCommand = errors.New("unknown control command")

// ReplayOptions tunes pacing and presentation of a replay.
type ReplayOptions struct {
	Schedule          RealTimeSchedule
	AnimationDuration time.Duration
	FrameInterval     time.Duration
	FitPadding        int
	InitialZoom       int
	FollowZoom        int
	MarkerIcon        string
	FullStyle         domain.PolylineStyle
	TraveledStyle     domain.PolylineStyle
}

// DefaultReplayOptions mirrors the stock map: gray full line, red traveled
// line, 1s animations and a car marker.
func DefaultReplayOptions() ReplayOptions {
	return ReplayOptions{
		Schedule:          DefaultSchedule(),
		AnimationDuration: DefaultAnimationDuration,
		FrameInterval:     DefaultFrameInterval,
		FitPadding:        DefaultFitPadding,
		InitialZoom:       DefaultInitialZoom,
		FollowZoom:        DefaultFollowZoom,
		MarkerIcon:        DefaultMarkerIcon,
		FullStyle:         domain.PolylineStyle{Color: "gray", Weight: 3, Opacity: 0.5},
		TraveledStyle:     domain.PolylineStyle{Color: "red", Weight: 5, Opacity: 0.9},
	}
}

// ViewSnapshot is everything a freshly attached map needs to draw the
// current replay.
type ViewSnapshot struct {
	Full          [][2]float64         `json:"full"`
	Traveled      [][2]float64         `json:"traveled"`
	FullStyle     domain.PolylineStyle `json:"full_style"`
	TraveledStyle domain.PolylineStyle `json:"traveled_style"`
	Marker        *domain.GeoPoint     `json:"marker,omitempty"`
	Rotation      float64              `json:"rotation"`
	Icon          string               `json:"icon"`
	Bounds        *domain.Bounds       `json:"bounds,omitempty"`
	Padding       int                  `json:"padding"`
	Zoom          int                  `json:"zoom"`
}

// ReplayService runs one replay session. A single mutex guards every
// component, and timer callbacks acquire it through serialClock, so view
// calls are never concurrent.
type ReplayService struct {
	mu sync.Mutex

	source    ports.RouteSource
	view      ports.MapView
	publisher ports.EventPublisher
	opts      ReplayOptions
	log       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	clk    clock.Clock
	closed bool

	store  *RouteStore
	driver *PlaybackDriver
	marker *Interpolator
	fitter *BoundsFitter
	follow *AutoFollower

	loadErr  error
	loadedAt time.Time
}

// NewReplayService wires a replay session. view and publisher may be nil.
func NewReplayService(
	clk clock.Clock,
	source ports.RouteSource,
	view ports.MapView,
	publisher ports.EventPublisher,
	opts ReplayOptions,
	log *slog.Logger,
) *ReplayService {
	if view == nil {
		view = nopView{}
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.MarkerIcon == "" {
		opts.MarkerIcon = DefaultMarkerIcon
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ReplayService{
		source:    source,
		view:      view,
		publisher: publisher,
		opts:      opts,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		store:     NewRouteStore(),
	}
	s.clk = serialClock{Clock: clk, svc: s}

	s.driver = NewPlaybackDriver(s.clk, s.store, opts.Schedule)
	s.driver.OnAdvance(s.advanced)
	s.driver.OnStateChange(s.stateChanged)

	s.marker = NewInterpolator(s.clk, opts.AnimationDuration, opts.FrameInterval)
	s.marker.OnFrame(s.renderMarker)

	s.fitter = NewBoundsFitter(view, opts.FitPadding, opts.InitialZoom, log)
	s.follow = NewAutoFollower(view, opts.FollowZoom, log)
	return s
}

// Load fetches the route from the source and starts a fresh session with it.
// On failure the current route is kept and the error is returned.
func (s *ReplayService) Load(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("no route source configured")
	}
	route, err := s.source.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("replay closed")
	}
	if err != nil {
		s.loadErr = err
		s.log.Error("route load failed", "location", s.source.Location(), "error", err)
		return err
	}

	s.apply(route)
	s.log.Info("route loaded", "location", s.source.Location(), "samples", len(route))
	return nil
}

// Reload drops any cached copy of the route and loads it again.
func (s *ReplayService) Reload(ctx context.Context) error {
	if inv, ok := s.source.(interface{ Invalidate(context.Context) error }); ok {
		if err := inv.Invalidate(ctx); err != nil {
			s.log.Warn("route cache invalidation failed", "error", err)
		}
	}
	return s.Load(ctx)
}

// SetRoute replaces the route without consulting the source.
func (s *ReplayService) SetRoute(route domain.Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.apply(route)
}

func (s *ReplayService) apply(route domain.Route) {
	s.driver.Reset()
	s.store.Load(route)
	s.follow.Rearm()
	s.fitter.Rearm()
	s.marker.ResetHeading()
	s.loadErr = nil
	s.loadedAt = s.clk.Now()
	metrics.RouteSamples.Set(float64(s.store.Len()))

	if first, ok := s.store.Current(0); ok {
		s.marker.Place(first.Point())
	} else {
		s.marker.Stop()
	}
	s.drawLines()
	s.fitter.Fit(s.ctx, s.store.Points())
	s.publish()
}

// TogglePlay starts or pauses playback.
func (s *ReplayService) TogglePlay(ctx context.Context) domain.ReplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.driver.TogglePlay()
	}
	return s.status()
}

// Reset pauses and moves the marker back to the first sample. The follow
// latch survives a reset.
func (s *ReplayService) Reset(ctx context.Context) domain.ReplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.status()
	}

	s.driver.Reset()
	if first, ok := s.store.Current(0); ok {
		s.marker.Place(first.Point())
	}
	s.drawLines()
	s.publish()
	return s.status()
}

// MarkInteraction records a user drag or zoom on the map. It reports whether
// the event was recognised.
func (s *ReplayService) MarkInteraction(ctx context.Context, event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasLatched := s.follow.Latched()
	ok := s.follow.MarkInteraction(event)
	if ok && !wasLatched {
		s.log.Info("auto-follow disabled by user interaction", "event", event)
		s.publish()
	}
	return ok
}

// Execute runs a remote control command.
func (s *ReplayService) Execute(ctx context.Context, cmd domain.ControlCommand) error {
	label := string(cmd)
	if !cmd.Valid() {
		label = "unknown"
	}
	metrics.ControlCommands.WithLabelValues(label).Inc()

	switch cmd {
	case domain.CommandToggle:
		s.TogglePlay(ctx)
	case domain.CommandReset:
		s.Reset(ctx)
	case domain.CommandReload:
		return s.Reload(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return nil
}

// Status returns the control panel snapshot.
func (s *ReplayService) Status() domain.ReplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

// Coordinates returns the full and traveled polylines.
func (s *ReplayService) Coordinates() (full, traveled [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.FullCoordinates(), s.store.TraveledCoordinates(s.driver.State().CurrentIndex)
}

// Route returns a copy of the loaded route.
func (s *ReplayService) Route() domain.Route {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Route()
}

// Frame returns the segment animation in flight, if any.
func (s *ReplayService) Frame() (domain.AnimationFrame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marker.Frame()
}

// Snapshot describes the current view for a newly attached map.
func (s *ReplayService) Snapshot() ViewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := ViewSnapshot{
		Full:          s.store.FullCoordinates(),
		Traveled:      s.store.TraveledCoordinates(s.driver.State().CurrentIndex),
		FullStyle:     s.opts.FullStyle,
		TraveledStyle: s.opts.TraveledStyle,
		Rotation:      s.marker.Rotation(),
		Icon:          s.opts.MarkerIcon,
		Padding:       s.opts.FitPadding,
		Zoom:          s.opts.InitialZoom,
	}
	if s.store.Len() > 0 {
		pos := s.marker.Position()
		snap.Marker = &pos
	}
	if b, ok := geospatial.BoundsOf(s.store.Points()); ok {
		snap.Bounds = &b
	}
	return snap
}

// LastLoad reports when the current route was applied and the error of the
// most recent failed load, if it failed after that.
func (s *ReplayService) LastLoad() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt, s.loadErr
}

// Close stops every timer. No view call happens after Close returns.
func (s *ReplayService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.driver.Stop()
	s.marker.Stop()
	s.cancel()
}

func (s *ReplayService) status() domain.ReplayStatus {
	st := s.driver.State()
	out := domain.ReplayStatus{
		PlaybackState: st,
		Total:         s.store.Len(),
		Marker:        s.marker.Position(),
		Rotation:      s.marker.Rotation(),
		Following:     !s.follow.Latched(),
	}
	if cur, ok := s.store.Current(st.CurrentIndex); ok {
		out.Current = &cur
		out.SpeedKmH = InstantaneousSpeedKmH(s.store.route, st.CurrentIndex)
	}
	return out
}

func (s *ReplayService) advanced(prev, index int) {
	from, _ := s.store.Current(prev)
	to, _ := s.store.Current(index)

	metrics.SegmentsAdvanced.Inc()
	s.marker.Animate(from.Point(), to.Point())
	s.drawLines()
	s.follow.Follow(s.ctx, s.driver.State().IsPlaying, to.Point())
	s.publish()
}

func (s *ReplayService) stateChanged(st domain.PlaybackState) {
	if st.IsPlaying {
		metrics.PlaybackPlaying.Set(1)
	} else {
		metrics.PlaybackPlaying.Set(0)
	}
	s.log.Info("playback state changed", "playing", st.IsPlaying, "index", st.CurrentIndex)
	s.publish()
}

func (s *ReplayService) renderMarker(pos domain.GeoPoint, rotation float64) {
	metrics.FramesRendered.Inc()
	if err := s.view.RenderMarker(s.ctx, pos, rotation, s.opts.MarkerIcon); err != nil {
		s.log.Debug("render marker failed", "error", err)
	}
}

func (s *ReplayService) drawLines() {
	full := s.store.FullCoordinates()
	traveled := s.store.TraveledCoordinates(s.driver.State().CurrentIndex)
	if err := s.view.RenderPolyline(s.ctx, PolylineFull, full, s.opts.FullStyle); err != nil {
		s.log.Warn("render polyline failed", "id", PolylineFull, "error", err)
	}
	if err := s.view.RenderPolyline(s.ctx, PolylineTraveled, traveled, s.opts.TraveledStyle); err != nil {
		s.log.Warn("render polyline failed", "id", PolylineTraveled, "error", err)
	}
}

func (s *ReplayService) publish() {
	if s.publisher == nil {
		return
	}
	st := s.status()
	if err := s.publisher.PublishStatus(s.ctx, &st); err != nil {
		s.log.Warn("publish status failed", "error", err)
	}
}

// serialClock runs timer callbacks under the service mutex and drops them
// once the service is closed.
type serialClock struct {
	clock.Clock
	svc *ReplayService
}

func (c serialClock) AfterFunc(d time.Duration, f func()) *clock.Timer {
	return c.Clock.AfterFunc(d, func() {
		c.svc.mu.Lock()
		defer c.svc.mu.Unlock()
		if c.svc.closed {
			return
		}
		f()
	})
}

type nopView struct{}

func (nopView) RenderPolyline(context.Context, string, [][2]float64, domain.PolylineStyle) error {
	return nil
}
func (nopView) RenderMarker(context.Context, domain.GeoPoint, float64, string) error { return nil }
func (nopView) FitViewport(context.Context, domain.Bounds, int) error               { return nil }
func (nopView) PanViewport(context.Context, domain.GeoPoint, bool) error            { return nil }
func (nopView) SetZoom(context.Context, int) error                                  { return nil }
