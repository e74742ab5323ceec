package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/routereplay/internal/adapters/postgres")

// RouteSampleRepo implements ports.RouteSampleRepository.
type RouteSampleRepo struct {
	db *DB
}

func NewRouteSampleRepo(db *DB) *RouteSampleRepo { return &RouteSampleRepo{db: db} }

// SamplesByRoute returns the samples of routeID in recording order.
func (r *RouteSampleRepo) SamplesByRoute(ctx context.Context, routeID string) (domain.Route, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanRouteQuery,
		trace.WithAttributes(attribute.String(telemetry.AttrRouteLocation, routeID)))
	defer span.End()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT latitude, longitude, recorded_at
		FROM route_samples
		WHERE route_id = $1
		ORDER BY seq
	`, routeID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var route domain.Route
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(&s.Lat, &s.Lng, &s.Timestamp); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		route = append(route, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrRouteSamples, len(route)))
	return route, nil
}

// CountByRoute returns how many samples routeID has.
func (r *RouteSampleRepo) CountByRoute(ctx context.Context, routeID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM route_samples WHERE route_id = $1`, routeID,
	).Scan(&n)
	return n, err
}

// ReplaceRoute swaps every sample of routeID for route in one transaction.
func (r *RouteSampleRepo) ReplaceRoute(ctx context.Context, routeID string, route domain.Route) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM route_samples WHERE route_id = $1`, routeID); err != nil {
		return fmt.Errorf("clear samples: %w", err)
	}

	batch := &pgx.Batch{}
	for i, s := range route {
		batch.Queue(`
			INSERT INTO route_samples (route_id, seq, latitude, longitude, recorded_at)
			VALUES ($1, $2, $3, $4, $5)
		`, routeID, i, s.Lat, s.Lng, s.Timestamp)
	}
	br := tx.SendBatch(ctx, batch)
	for range route {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

// RouteSource adapts a stored route to ports.RouteSource.
type RouteSource struct {
	repo    ports.RouteSampleRepository
	routeID string
}

func NewRouteSource(repo ports.RouteSampleRepository, routeID string) *RouteSource {
	return &RouteSource{repo: repo, routeID: routeID}
}

func (s *RouteSource) Location() string { return "postgres:route_samples/" + s.routeID }

func (s *RouteSource) Load(ctx context.Context) (domain.Route, error) {
	route, err := s.repo.SamplesByRoute(ctx, s.routeID)
	if err != nil {
		return nil, err
	}
	if len(route) == 0 {
		return nil, fmt.Errorf("route %q has no samples", s.routeID)
	}
	return route, nil
}
