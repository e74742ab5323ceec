package routefile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

// ErrEmptyTimestamp is returned for a sample without a usable timestamp.
var ErrEmptyTimestamp = errors.New("missing timestamp")

// rawSample is one element of the route file:
// {"latitude": 17.38, "longitude": 78.48, "timestamp": "2024-03-01T10:00:00Z"}.
type rawSample struct {
	Latitude  *float64        `json:"latitude"`
	Longitude *float64        `json:"longitude"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// timestamp layouts tried in order for string values. Layouts without a zone
// are read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// DecodeJSON reads a JSON array of samples. Timestamps may be RFC 3339
// strings, epoch milliseconds or numeric strings of epoch milliseconds.
func DecodeJSON(r io.Reader) (domain.Route, error) {
	var raw []rawSample
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode route json: %w", err)
	}

	route := make(domain.Route, 0, len(raw))
	for i, s := range raw {
		if s.Latitude == nil || s.Longitude == nil {
			return nil, fmt.Errorf("sample %d: missing coordinates", i)
		}
		ts, err := parseTimestamp(s.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		route = append(route, domain.Sample{Lat: *s.Latitude, Lng: *s.Longitude, Timestamp: ts})
	}
	return route, nil
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, ErrEmptyTimestamp
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("timestamp: %w", err)
		}
		return parseTimestampString(s)
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("timestamp %s: %w", raw, err)
	}
	return time.UnixMilli(int64(math.Round(ms))), nil
}

func parseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}
	if ms, err := strconv.ParseFloat(s, 64); err == nil {
		return time.UnixMilli(int64(math.Round(ms))), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp %q: unrecognised format", s)
}

// DecodeGPX reads track points, falling back to route points when the file
// has no tracks.
func DecodeGPX(data []byte) (domain.Route, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse gpx: %w", err)
	}

	var route domain.Route
	for _, track := range g.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				route = append(route, domain.Sample{Lat: p.Latitude, Lng: p.Longitude, Timestamp: p.Timestamp})
			}
		}
	}
	if len(route) == 0 {
		for _, rte := range g.Routes {
			for _, p := range rte.Points {
				route = append(route, domain.Sample{Lat: p.Latitude, Lng: p.Longitude, Timestamp: p.Timestamp})
			}
		}
	}
	return route, nil
}

func isGPX(location string) bool {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return strings.EqualFold(path.Ext(location), ".gpx")
}
