package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/routereplay/internal/adapters/http"
	natsadapter "github.com/samirrijal/routereplay/internal/adapters/nats"
	"github.com/samirrijal/routereplay/internal/adapters/postgres"
	"github.com/samirrijal/routereplay/internal/adapters/routefile"
	"github.com/samirrijal/routereplay/internal/adapters/valkey"
	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/core/usecases"
	"github.com/samirrijal/routereplay/internal/pkg/config"
	"github.com/samirrijal/routereplay/internal/pkg/logging"
	"github.com/samirrijal/routereplay/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("routereplay-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database (only the postgres route source needs it)
	var db *postgres.DB
	if cfg.Route.Source == config.RouteSourcePostgres {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
	}

	// Cache
	var cache *valkey.Cache
	var routeCache ports.CacheService
	if cfg.Valkey.Enabled {
		cache, err = valkey.New(cfg.Valkey.Addr)
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
			err = cache.Ping(pingCtx)
			pingCancel()
			if err != nil {
				cache.Close()
				cache = nil
			}
		}
		if err != nil {
			slog.Warn("valkey unavailable, route cache disabled", "error", err)
		} else {
			defer cache.Close()
			routeCache = cache
		}
	}

	// NATS
	var publisher ports.EventPublisher
	var subscriber *natsadapter.Subscriber
	var pub *natsadapter.Publisher
	if cfg.NATS.Enabled {
		conn, err := natsadapter.Connect(cfg.NATS.URL, "routereplay-api")
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			pub = natsadapter.NewPublisher(conn)
			defer pub.Close()
			publisher = pub
			subscriber = natsadapter.NewSubscriber(conn, logger)
		}
	}

	// Route source
	var source ports.RouteSource
	switch cfg.Route.Source {
	case config.RouteSourcePostgres:
		source = postgres.NewRouteSource(postgres.NewRouteSampleRepo(db), cfg.Route.ID)
	default:
		source = routefile.New(cfg.Route.URL, cfg.Route.StaticDir, cfg.Route.FetchTimeout)
	}
	loader := usecases.NewRouteLoader(source, routeCache, cfg.Route.CacheTTL, logger)

	// Replay
	views := http.NewViewHub(domain.GeoPoint{Lat: cfg.View.CenterLat, Lng: cfg.View.CenterLng}, cfg.View.InitialZoom)
	replay := usecases.NewReplayService(clock.New(), loader, views, publisher, replayOptions(cfg), logger)
	defer replay.Close()

	if err := replay.Load(ctx); err != nil {
		slog.Warn("starting without a route", "location", loader.Location(), "error", err)
	}

	if subscriber != nil {
		if err := subscriber.SubscribeControl(ctx, replay.Execute); err != nil {
			slog.Warn("nats control subscription failed", "error", err)
		}
		defer subscriber.Close()
	}

	deps := &http.Dependencies{
		Replay:    replay,
		Views:     views,
		DB:        db,
		Cache:     cache,
		StaticDir: cfg.Route.StaticDir,
		Version:   version,
	}
	if pub != nil {
		deps.NATS = pub.Conn()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:           time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:             64 * 1024,
		AppName:               "Route Replay",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "route", loader.Location())
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func replayOptions(cfg *config.Config) usecases.ReplayOptions {
	opts := usecases.DefaultReplayOptions()
	opts.Schedule = usecases.RealTimeSchedule{
		TimeScale:   cfg.Playback.TimeScale,
		MinInterval: cfg.Playback.MinInterval,
		MaxInterval: cfg.Playback.MaxInterval,
	}
	opts.AnimationDuration = cfg.Playback.AnimationDuration
	opts.FrameInterval = cfg.Playback.FrameInterval
	opts.FitPadding = cfg.View.FitPadding
	opts.InitialZoom = cfg.View.InitialZoom
	opts.FollowZoom = cfg.View.FollowZoom
	opts.MarkerIcon = cfg.View.MarkerIcon
	return opts
}
