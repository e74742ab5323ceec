package usecases

import (
	"context"
	"log/slog"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/pkg/geospatial"
)

const (
	DefaultFitPadding  = 50
	DefaultInitialZoom = 17
	DefaultFollowZoom  = 18
)

// Interaction events that stop the camera from following the marker.
const (
	InteractionDragStart = "dragstart"
	InteractionZoomStart = "zoomstart"
)

// BoundsFitter frames the whole route once per load.
type BoundsFitter struct {
	view    ports.MapView
	padding int
	zoom    int
	fitted  bool
	log     *slog.Logger
}

// NewBoundsFitter creates a BoundsFitter that pads the fit by padding pixels
// and then settles on zoom.
func NewBoundsFitter(view ports.MapView, padding, zoom int, log *slog.Logger) *BoundsFitter {
	return &BoundsFitter{view: view, padding: padding, zoom: zoom, log: log}
}

// Fit frames points on the first call with a non-empty list. Later calls are
// no-ops until Rearm. It reports whether the view was asked to move.
func (b *BoundsFitter) Fit(ctx context.Context, points []domain.GeoPoint) bool {
	if b.fitted {
		return false
	}
	bounds, ok := geospatial.BoundsOf(points)
	if !ok {
		return false
	}
	b.fitted = true

	if err := b.view.FitViewport(ctx, bounds, b.padding); err != nil {
		b.log.Warn("fit viewport failed", "error", err)
	}
	if err := b.view.SetZoom(ctx, b.zoom); err != nil {
		b.log.Warn("set zoom failed", "zoom", b.zoom, "error", err)
	}
	return true
}

// Fitted reports whether the current route has been framed.
func (b *BoundsFitter) Fitted() bool {
	return b.fitted
}

// Rearm allows the next Fit to frame a newly loaded route.
func (b *BoundsFitter) Rearm() {
	b.fitted = false
}

// AutoFollower pans the camera to each new position while playing, until the
// user takes over the map.
type AutoFollower struct {
	view    ports.MapView
	zoom    int
	latched bool
	log     *slog.Logger
}

// NewAutoFollower creates an unlatched AutoFollower.
func NewAutoFollower(view ports.MapView, zoom int, log *slog.Logger) *AutoFollower {
	return &AutoFollower{view: view, zoom: zoom, log: log}
}

// MarkInteraction latches the follower on a drag or zoom start. Other events
// are ignored. It reports whether the event was recognised.
func (f *AutoFollower) MarkInteraction(event string) bool {
	switch event {
	case InteractionDragStart, InteractionZoomStart:
		f.latched = true
		return true
	}
	return false
}

// Latched reports whether the user has taken over the camera.
func (f *AutoFollower) Latched() bool {
	return f.latched
}

// Rearm clears the latch. Only a route reload does this.
func (f *AutoFollower) Rearm() {
	f.latched = false
}

// Follow pans to pos when playing and not latched. It reports whether a pan
// was requested. View failures are logged and otherwise ignored.
func (f *AutoFollower) Follow(ctx context.Context, playing bool, pos domain.GeoPoint) bool {
	if !playing || f.latched {
		return false
	}
	if err := f.view.PanViewport(ctx, pos, true); err != nil {
		f.log.Warn("pan viewport failed", "lat", pos.Lat, "lng", pos.Lng, "error", err)
	}
	if err := f.view.SetZoom(ctx, f.zoom); err != nil {
		f.log.Warn("set zoom failed", "zoom", f.zoom, "error", err)
	}
	return true
}
