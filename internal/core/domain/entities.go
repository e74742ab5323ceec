package domain

import (
	"fmt"
	"time"
)

// Sample is one recorded GPS fix of the replayed vehicle.
type Sample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the sample position.
func (s Sample) Point() GeoPoint {
	return GeoPoint{Lat: s.Lat, Lng: s.Lng}
}

// Route is an ordered sequence of samples. Timestamps are expected to be
// non-decreasing but this is not enforced.
type Route []Sample

// Points returns the positions of every sample in order.
func (r Route) Points() []GeoPoint {
	pts := make([]GeoPoint, len(r))
	for i, s := range r {
		pts[i] = s.Point()
	}
	return pts
}

// PlaybackState is the replay cursor.
type PlaybackState struct {
	CurrentIndex int  `json:"current_index"`
	IsPlaying    bool `json:"is_playing"`
}

// AnimationFrame describes the segment the marker is currently moving along.
type AnimationFrame struct {
	Start     GeoPoint      `json:"start"`
	End       GeoPoint      `json:"end"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Fraction  float64       `json:"fraction"`
	Eased     float64       `json:"eased"`
	Heading   float64       `json:"heading"`
}

// PolylineStyle is the stroke used to draw a route line.
type PolylineStyle struct {
	Color   string  `json:"color"`
	Weight  int     `json:"weight"`
	Opacity float64 `json:"opacity"`
}

// ControlCommand is a playback command received from a remote client.
type ControlCommand string

const (
	CommandToggle ControlCommand = "toggle"
	CommandReset  ControlCommand = "reset"
	CommandReload ControlCommand = "reload"
)

// Valid reports whether c is a known command.
func (c ControlCommand) Valid() bool {
	switch c {
	case CommandToggle, CommandReset, CommandReload:
		return true
	}
	return false
}

// ReplayStatus is the snapshot shown by the control panel and published to
// subscribers after every state change.
type ReplayStatus struct {
	PlaybackState
	Total     int      `json:"total"`
	Current   *Sample  `json:"current,omitempty"`
	SpeedKmH  float64  `json:"speed_kmh"`
	Marker    GeoPoint `json:"marker"`
	Rotation  float64  `json:"rotation"`
	Following bool     `json:"following"`
}

// Line formats the status as "lat, lng | time | speed km/h". Times are shown
// in loc; a nil loc means local time.
func (s ReplayStatus) Line(loc *time.Location) string {
	if s.Current == nil {
		return "no route loaded"
	}
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%.6f, %.6f | %s | %.2f km/h",
		s.Current.Lat, s.Current.Lng,
		s.Current.Timestamp.In(loc).Format("15:04:05"),
		s.SpeedKmH,
	)
}
