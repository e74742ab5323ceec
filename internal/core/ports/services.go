package ports

import (
	"context"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

// MapView is the map widget the replay draws on. Implementations must not
// call back into the replay service.
type MapView interface {
	RenderPolyline(ctx context.Context, id string, coords [][2]float64, style domain.PolylineStyle) error
	RenderMarker(ctx context.Context, pos domain.GeoPoint, rotation float64, icon string) error
	FitViewport(ctx context.Context, bounds domain.Bounds, padding int) error
	PanViewport(ctx context.Context, pos domain.GeoPoint, animated bool) error
	SetZoom(ctx context.Context, level int) error
}

// EventPublisher publishes replay events to a message broker.
type EventPublisher interface {
	PublishStatus(ctx context.Context, status *domain.ReplayStatus) error
}

// EventSubscriber receives remote playback commands from a message broker.
type EventSubscriber interface {
	SubscribeControl(ctx context.Context, handler func(ctx context.Context, cmd domain.ControlCommand) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
