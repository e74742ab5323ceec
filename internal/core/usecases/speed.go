package usecases

import (
	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/pkg/geospatial"
)

// InstantaneousSpeedKmH estimates the speed over the segment ending at index.
// It returns 0 for the first sample, out-of-range indexes, routes shorter than
// two samples and segments whose elapsed time is not positive.
func InstantaneousSpeedKmH(route domain.Route, index int) float64 {
	if len(route) < 2 || index <= 0 || index >= len(route) {
		return 0
	}

	prev, curr := route[index-1], route[index]
	hours := curr.Timestamp.Sub(prev.Timestamp).Hours()
	if hours <= 0 {
		return 0
	}
	return geospatial.DistanceKm(prev.Point(), curr.Point()) / hours
}
