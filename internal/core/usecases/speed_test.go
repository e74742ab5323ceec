package usecases_test

import (
	"math"
	"testing"
	"time"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/usecases"
)

func TestInstantaneousSpeedKmH(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	route := domain.Route{
		{Lat: 0, Lng: 0, Timestamp: t0},
		{Lat: 0, Lng: 1, Timestamp: t0.Add(time.Hour)},
		{Lat: 0, Lng: 2, Timestamp: t0.Add(time.Hour)},
		{Lat: 0, Lng: 3, Timestamp: t0.Add(30 * time.Minute)},
	}

	tests := []struct {
		name  string
		route domain.Route
		index int
		want  float64
	}{
		{"first sample", route, 0, 0},
		{"one degree in an hour", route, 1, 111.19492664455873},
		{"zero elapsed", route, 2, 0},
		{"negative elapsed", route, 3, 0},
		{"index past end", route, 4, 0},
		{"negative index", route, -1, 0},
		{"single sample", route[:1], 1, 0},
		{"empty route", nil, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := usecases.InstantaneousSpeedKmH(tt.route, tt.index)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
