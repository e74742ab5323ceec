package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "routereplay",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Replay metrics
	SegmentsAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "playback",
		Name:      "segments_advanced_total",
		Help:      "Total route segments the playback cursor moved past",
	})

	FramesRendered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "playback",
		Name:      "frames_rendered_total",
		Help:      "Total marker positions sent to the map view",
	})

	PlaybackPlaying = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routereplay",
		Subsystem: "playback",
		Name:      "playing",
		Help:      "1 while the replay is playing, 0 while paused",
	})

	ControlCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "playback",
		Name:      "control_commands_total",
		Help:      "Total remote control commands received",
	}, []string{"command"})

	// Route loading
	RouteLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "route",
		Name:      "loads_total",
		Help:      "Total route loads from the configured source",
	}, []string{"result"})

	RouteLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "routereplay",
		Subsystem: "route",
		Name:      "load_duration_seconds",
		Help:      "Duration of route fetch and decode",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	})

	RouteSamples = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routereplay",
		Subsystem: "route",
		Name:      "samples",
		Help:      "Number of samples in the loaded route",
	})

	// View channel
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routereplay",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of attached map views",
	})

	ViewMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "ws",
		Name:      "messages_dropped_total",
		Help:      "View commands dropped because a client fell behind",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "routereplay",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routereplay",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "routereplay",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics copies pool gauges from anything exposing pgxpool.Stat's
// counters, keeping pgx out of this package.
func UpdateDBPoolMetrics(stat interface {
	AcquiredConns() int32
	IdleConns() int32
}) {
	DBPoolConnsAcquired.Set(float64(stat.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(stat.IdleConns()))
}
