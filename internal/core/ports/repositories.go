package ports

import (
	"context"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

// RouteSource loads the recorded route to replay.
type RouteSource interface {
	Load(ctx context.Context) (domain.Route, error)
	// Location identifies where the route comes from (URL, path, route id).
	Location() string
}

// RouteSampleRepository reads recorded samples stored in the database.
type RouteSampleRepository interface {
	SamplesByRoute(ctx context.Context, routeID string) (domain.Route, error)
	CountByRoute(ctx context.Context, routeID string) (int, error)
}
