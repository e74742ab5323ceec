package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/pkg/geospatial"
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	p := domain.GeoPoint{Lat: 17.385044, Lng: 78.486671}
	if d := geospatial.DistanceKm(p, p); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	pairs := [][2]domain.GeoPoint{
		{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}},
		{{Lat: 17.385044, Lng: 78.486671}, {Lat: 17.3902, Lng: 78.4911}},
		{{Lat: -33.86, Lng: 151.21}, {Lat: 51.5, Lng: -0.12}},
	}
	for _, p := range pairs {
		ab := geospatial.DistanceKm(p[0], p[1])
		ba := geospatial.DistanceKm(p[1], p[0])
		if ab < 0 {
			t.Errorf("negative distance %v", ab)
		}
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("asymmetric distance: %v vs %v", ab, ba)
		}
	}
}

func TestDistanceKm_OneDegreeAtEquator(t *testing.T) {
	d := geospatial.DistanceKm(domain.GeoPoint{Lat: 0, Lng: 0}, domain.GeoPoint{Lat: 0, Lng: 1})
	// 2πR/360 with R = 6371
	if math.Abs(d-111.195) > 0.01 {
		t.Errorf("expected ~111.195 km, got %v", d)
	}
}

func TestDistanceKm_NearAntipodal(t *testing.T) {
	half := math.Pi * 6371
	for lat := -89.0; lat <= 89.0; lat += 0.37 {
		for _, lng := range []float64{-179, -42.5, 0, 1, 120.25} {
			a := domain.GeoPoint{Lat: lat, Lng: lng}
			b := domain.GeoPoint{Lat: -lat, Lng: lng + 180}
			d := geospatial.DistanceKm(a, b)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				t.Fatalf("%v -> %v: expected finite distance, got %v", a, b, d)
			}
			if math.Abs(d-half) > 0.01 {
				t.Errorf("%v -> %v: expected ~%v, got %v", a, b, half, d)
			}
		}
	}

	a := domain.GeoPoint{Lat: -86.78, Lng: -179}
	b := domain.GeoPoint{Lat: 86.78, Lng: 1}
	if d := geospatial.DistanceKm(a, b); math.IsNaN(d) {
		t.Fatalf("expected finite distance, got NaN")
	}
}

func TestBearingDegrees(t *testing.T) {
	origin := domain.GeoPoint{Lat: 0, Lng: 0}
	tests := []struct {
		name string
		to   domain.GeoPoint
		want float64
	}{
		{"north", domain.GeoPoint{Lat: 1, Lng: 0}, 0},
		{"east", domain.GeoPoint{Lat: 0, Lng: 1}, 90},
		{"south", domain.GeoPoint{Lat: -1, Lng: 0}, 180},
		{"west", domain.GeoPoint{Lat: 0, Lng: -1}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.BearingDegrees(origin, tt.to)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBearingDegrees_Range(t *testing.T) {
	pts := []domain.GeoPoint{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: -45, Lng: 170},
		{Lat: 45, Lng: -170}, {Lat: 89.9, Lng: 0}, {Lat: 17.385044, Lng: 78.486671},
	}
	for _, a := range pts {
		for _, b := range pts {
			got := geospatial.BearingDegrees(a, b)
			if got < 0 || got >= 360 {
				t.Fatalf("bearing %v -> %v out of range: %v", a, b, got)
			}
		}
	}
}

func TestBoundsOf(t *testing.T) {
	if _, ok := geospatial.BoundsOf(nil); ok {
		t.Fatal("expected no bounds for empty input")
	}

	b, ok := geospatial.BoundsOf([]domain.GeoPoint{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1},
	})
	if !ok {
		t.Fatal("expected bounds")
	}
	want := domain.Bounds{MinLat: 0, MinLng: 0, MaxLat: 1, MaxLng: 1}
	if b != want {
		t.Errorf("expected %+v, got %+v", want, b)
	}
	if !b.Contains(domain.GeoPoint{Lat: 0.5, Lng: 0.5}) {
		t.Error("expected midpoint inside bounds")
	}
}
