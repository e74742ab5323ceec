// Command replay plays a recorded route in the terminal, showing progress and
// the live status line instead of a map.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/facebookgo/clock"
	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	natsadapter "github.com/samirrijal/routereplay/internal/adapters/nats"
	"github.com/samirrijal/routereplay/internal/adapters/routefile"
	"github.com/samirrijal/routereplay/internal/core/domain"
	"github.com/samirrijal/routereplay/internal/core/ports"
	"github.com/samirrijal/routereplay/internal/core/usecases"
	"github.com/samirrijal/routereplay/internal/pkg/config"
	"github.com/samirrijal/routereplay/internal/pkg/logging"
)

func main() {
	cfg, err := config.Load("routereplay-cli")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	route := flag.StringP("route", "r", cfg.Route.URL, "route file: http(s) URL, path under --static, or .gpx")
	static := flag.String("static", cfg.Route.StaticDir, "directory for non-URL route paths")
	scale := flag.Float64P("scale", "s", cfg.Playback.TimeScale, "playback speed relative to recorded time")
	minInterval := flag.Duration("min-interval", cfg.Playback.MinInterval, "shortest wait between samples")
	maxInterval := flag.Duration("max-interval", cfg.Playback.MaxInterval, "longest wait between samples")
	publish := flag.Bool("publish", false, "also publish status to NATS at nats.url")
	flag.Parse()

	// The bar owns stdout; logs go to stderr and stay quiet.
	logger := logging.New(os.Stderr, "warn", "text")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source := routefile.New(*route, *static, cfg.Route.FetchTimeout)
	samples, err := source.Load(ctx)
	if err != nil {
		log.Fatalf("load route %s: %v", source.Location(), err)
	}
	if len(samples) < 2 {
		log.Fatalf("route %s has %d samples, nothing to replay", source.Location(), len(samples))
	}

	progress := newBarPublisher(len(samples))
	var publisher ports.EventPublisher = progress
	if *publish {
		conn, err := natsadapter.Connect(cfg.NATS.URL, "routereplay-cli")
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		pub := natsadapter.NewPublisher(conn)
		defer pub.Close()
		publisher = fanout{progress, pub}
	}

	opts := usecases.DefaultReplayOptions()
	opts.Schedule = usecases.RealTimeSchedule{
		TimeScale:   *scale,
		MinInterval: *minInterval,
		MaxInterval: *maxInterval,
	}
	// No map to animate: one frame per segment is enough.
	opts.AnimationDuration = cfg.Playback.AnimationDuration
	opts.FrameInterval = cfg.Playback.AnimationDuration

	replay := usecases.NewReplayService(clock.New(), nil, nil, publisher, opts, logger)
	defer replay.Close()

	replay.SetRoute(samples)
	replay.TogglePlay(ctx)

	select {
	case <-progress.done:
		_ = progress.bar.Finish()
		fmt.Println()
		fmt.Println(replay.Status().Line(nil))
	case <-ctx.Done():
		fmt.Println()
		fmt.Println("interrupted at", replay.Status().Line(nil))
	}
}

// barPublisher renders every status update on a progress bar and signals
// done once playback pauses on the last sample.
type barPublisher struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	once sync.Once
}

func newBarPublisher(total int) *barPublisher {
	return &barPublisher{
		bar:  progressbar.Default(int64(total-1), "Replaying"),
		done: make(chan struct{}),
	}
}

func (p *barPublisher) PublishStatus(_ context.Context, st *domain.ReplayStatus) error {
	if st.Total > 1 {
		p.bar.ChangeMax(st.Total - 1)
	}
	p.bar.Describe(st.Line(nil))
	if err := p.bar.Set(st.CurrentIndex); err != nil {
		return err
	}
	if st.Total > 1 && st.CurrentIndex == st.Total-1 && !st.IsPlaying {
		p.once.Do(func() { close(p.done) })
	}
	return nil
}

// fanout publishes to several publishers, returning the first error.
type fanout []ports.EventPublisher

func (f fanout) PublishStatus(ctx context.Context, st *domain.ReplayStatus) error {
	var first error
	for _, p := range f {
		if err := p.PublishStatus(ctx, st); err != nil && first == nil {
			first = err
		}
	}
	return first
}
