package routefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/pkg/telemetry"
)

// maxRouteBytes caps how much of a route file is read.
const maxRouteBytes = 32 << 20

// ErrRouteTooLarge is returned when a route file exceeds maxRouteBytes.
var ErrRouteTooLarge = errors.New("route file exceeds 32 MiB")

var tracer = otel.Tracer("github.com/samirrijal/routereplay/internal/adapters/routefile")

// New picks the source for location: http(s) URLs are fetched, anything else
// is resolved under staticDir, so the default "/dummy-route.json" maps to
// "<staticDir>/dummy-route.json".
func New(location, staticDir string, timeout time.Duration) ports.RouteSource {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, &http.Client{Timeout: timeout})
	}
	return NewFileSource(filepath.Join(staticDir, filepath.FromSlash(strings.TrimPrefix(location, "/"))))
}

// HTTPSource fetches the route file over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client uses http.DefaultClient.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{url: url, client: client}
}

func (s *HTTPSource) Location() string { return s.url }

// Load performs a single GET and decodes the body.
func (s *HTTPSource) Load(ctx context.Context) (domain.Route, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanRouteFetch,
		trace.WithAttributes(attribute.String(telemetry.AttrRouteLocation, s.url)))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("GET %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d for %s", resp.StatusCode, s.url)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return decode(ctx, s.url, body)
}

// FileSource reads the route file from disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Location() string { return s.path }

func (s *FileSource) Load(ctx context.Context) (domain.Route, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open route file: %w", err)
	}
	defer f.Close()

	body, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return decode(ctx, s.path, body)
}

func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxRouteBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxRouteBytes {
		return nil, ErrRouteTooLarge
	}
	return body, nil
}

func decode(ctx context.Context, location string, body []byte) (domain.Route, error) {
	_, span := tracer.Start(ctx, telemetry.SpanRouteDecode)
	defer span.End()

	var (
		route domain.Route
		err   error
	)
	if isGPX(location) {
		route, err = DecodeGPX(body)
	} else {
		route, err = DecodeJSON(bytes.NewReader(body))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int(telemetry.AttrRouteSamples, len(route)))
	return route, nil
}
