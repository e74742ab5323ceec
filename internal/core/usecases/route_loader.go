package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/pkg/metrics"
	"github.com/samirrijal/routereplay/internal/pkg/telemetry"
)

const routeCacheKeyPrefix = "routereplay:route:"

var tracer = otel.Tracer("github.com/samirrijal/routereplay/internal/core/usecases")

// RouteLoader fetches the route from its source through an optional cache.
// It implements ports.RouteSource itself.
type RouteLoader struct {
	source ports.RouteSource
	cache  ports.CacheService
	ttl    int
	log    *slog.Logger
}

// NewRouteLoader creates a RouteLoader. cache may be nil; a non-positive
// ttlSeconds also disables caching.
func NewRouteLoader(source ports.RouteSource, cache ports.CacheService, ttlSeconds int, log *slog.Logger) *RouteLoader {
	if log == nil {
		log = slog.Default()
	}
	return &RouteLoader{source: source, cache: cache, ttl: ttlSeconds, log: log}
}

// Location returns the underlying source location.
func (l *RouteLoader) Location() string {
	return l.source.Location()
}

func (l *RouteLoader) cacheKey() string {
	return routeCacheKeyPrefix + l.source.Location()
}

func (l *RouteLoader) caching() bool {
	return l.cache != nil && l.ttl > 0
}

// Load returns the cached route when present, otherwise fetches and caches it.
func (l *RouteLoader) Load(ctx context.Context) (domain.Route, error) {
	loc := l.source.Location()
	ctx, span := tracer.Start(ctx, telemetry.SpanRouteLoad,
		trace.WithAttributes(attribute.String(telemetry.AttrRouteLocation, loc)))
	defer span.End()

	if l.caching() {
		if data, err := l.cache.Get(ctx, l.cacheKey()); err == nil {
			var route domain.Route
			if err := json.Unmarshal(data, &route); err == nil {
				metrics.CacheHits.WithLabelValues("route").Inc()
				span.SetAttributes(
					attribute.Bool(telemetry.AttrCacheHit, true),
					attribute.Int(telemetry.AttrRouteSamples, len(route)),
				)
				return route, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}

	start := time.Now()
	route, err := l.source.Load(ctx)
	metrics.RouteLoadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RouteLoads.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("load route from %s: %w", loc, err)
	}
	metrics.RouteLoads.WithLabelValues("ok").Inc()
	span.SetAttributes(
		attribute.Bool(telemetry.AttrCacheHit, false),
		attribute.Int(telemetry.AttrRouteSamples, len(route)),
	)

	if l.caching() {
		if data, err := json.Marshal(route); err == nil {
			if err := l.cache.Set(ctx, l.cacheKey(), data, l.ttl); err != nil {
				l.log.Debug("route cache write failed", "key", l.cacheKey(), "error", err)
			}
		}
	}

	return route, nil
}

// Invalidate drops the cached copy so the next Load hits the source.
func (l *RouteLoader) Invalidate(ctx context.Context) error {
	if !l.caching() {
		return nil
	}
	return l.cache.Delete(ctx, l.cacheKey())
}
