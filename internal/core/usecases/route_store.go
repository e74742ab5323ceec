package usecases

import "github.com/samirrijal/routereplay/internal/core/domain"

// RouteStore holds the loaded route and derives the coordinate lists the view
// draws. It is not safe for concurrent use; ReplayService serialises access.
type RouteStore struct {
	route domain.Route
}

// NewRouteStore creates an empty RouteStore.
func NewRouteStore() *RouteStore {
	return &RouteStore{}
}

// Load replaces the stored route with a copy of route.
func (s *RouteStore) Load(route domain.Route) {
	s.route = append(domain.Route(nil), route...)
}

// Len returns the number of samples.
func (s *RouteStore) Len() int {
	return len(s.route)
}

// LastIndex returns the index of the final sample, or 0 for an empty route.
func (s *RouteStore) LastIndex() int {
	if len(s.route) == 0 {
		return 0
	}
	return len(s.route) - 1
}

// Route returns a copy of the stored route.
func (s *RouteStore) Route() domain.Route {
	return append(domain.Route(nil), s.route...)
}

// Points returns every sample position in order.
func (s *RouteStore) Points() []domain.GeoPoint {
	return s.route.Points()
}

// FullCoordinates returns [lat, lng] pairs for the whole route.
func (s *RouteStore) FullCoordinates() [][2]float64 {
	return s.coordinates(len(s.route))
}

// TraveledCoordinates returns the pairs for samples 0 through index inclusive.
// index is clamped to the route.
func (s *RouteStore) TraveledCoordinates(index int) [][2]float64 {
	if index < 0 {
		return [][2]float64{}
	}
	return s.coordinates(index + 1)
}

func (s *RouteStore) coordinates(n int) [][2]float64 {
	if n > len(s.route) {
		n = len(s.route)
	}
	coords := make([][2]float64, n)
	for i := 0; i < n; i++ {
		coords[i] = s.route[i].Point().Pair()
	}
	return coords
}

// Current returns the sample at index.
func (s *RouteStore) Current(index int) (domain.Sample, bool) {
	if index < 0 || index >= len(s.route) {
		return domain.Sample{}, false
	}
	return s.route[index], true
}

// Next returns the sample after index. At the last sample the current one is
// returned again.
func (s *RouteStore) Next(index int) (domain.Sample, bool) {
	if index+1 < len(s.route) && index >= 0 {
		return s.route[index+1], true
	}
	return s.Current(index)
}
