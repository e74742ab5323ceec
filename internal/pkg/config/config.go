package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Route sources.
const (
	RouteSourceURL      = "url"
	RouteSourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Route     RouteConfig     `mapstructure:"route"`
	Playback  PlaybackConfig  `mapstructure:"playback"`
	View      ViewConfig      `mapstructure:"view"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout  int    `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout int    `mapstructure:"write_timeout" validate:"gt=0"`
	AllowOrigins string `mapstructure:"allow_origins"`
}

// RouteConfig selects where the replayed route comes from. A URL starting
// with http:// or https:// is fetched; anything else is a path under
// StaticDir. Paths ending in .gpx are parsed as GPX.
type RouteConfig struct {
	Source       string        `mapstructure:"source" validate:"oneof=url postgres"`
	URL          string        `mapstructure:"url"`
	StaticDir    string        `mapstructure:"static_dir"`
	ID           string        `mapstructure:"id"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" validate:"gt=0"`
	CacheTTL     int           `mapstructure:"cache_ttl" validate:"gte=0"`
}

type PlaybackConfig struct {
	TimeScale         float64       `mapstructure:"time_scale" validate:"gt=0"`
	MinInterval       time.Duration `mapstructure:"min_interval" validate:"gt=0"`
	MaxInterval       time.Duration `mapstructure:"max_interval" validate:"gtefield=MinInterval"`
	AnimationDuration time.Duration `mapstructure:"animation_duration" validate:"gt=0"`
	FrameInterval     time.Duration `mapstructure:"frame_interval" validate:"gt=0"`
}

type ViewConfig struct {
	CenterLat   float64 `mapstructure:"center_lat" validate:"latitude"`
	CenterLng   float64 `mapstructure:"center_lng" validate:"longitude"`
	InitialZoom int     `mapstructure:"initial_zoom" validate:"min=0,max=22"`
	FollowZoom  int     `mapstructure:"follow_zoom" validate:"min=0,max=22"`
	FitPadding  int     `mapstructure:"fit_padding" validate:"gte=0"`
	MarkerIcon  string  `mapstructure:"marker_icon" validate:"required"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr    string `mapstructure:"addr"`
	Enabled bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: ROUTEREPLAY_ROUTE_URL → route.url
	v.SetEnvPrefix("ROUTEREPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("route.source", RouteSourceURL)
	v.SetDefault("route.url", "/dummy-route.json")
	v.SetDefault("route.static_dir", "./public")
	v.SetDefault("route.id", "")
	v.SetDefault("route.fetch_timeout", 10*time.Second)
	v.SetDefault("route.cache_ttl", 300)
	v.SetDefault("playback.time_scale", 1.0)
	v.SetDefault("playback.min_interval", 1200*time.Millisecond)
	v.SetDefault("playback.max_interval", 10*time.Second)
	v.SetDefault("playback.animation_duration", time.Second)
	v.SetDefault("playback.frame_interval", 16*time.Millisecond)
	v.SetDefault("view.center_lat", 17.385044)
	v.SetDefault("view.center_lng", 78.486671)
	v.SetDefault("view.initial_zoom", 17)
	v.SetDefault("view.follow_zoom", 18)
	v.SetDefault("view.fit_padding", 50)
	v.SetDefault("view.marker_icon", "🚗")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "replay")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "routereplay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their config key rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config validation: %w", err)
		}
		for _, fe := range verrs {
			key := strings.TrimPrefix(fe.Namespace(), "Config.")
			errs = append(errs, fmt.Sprintf("%s fails %q (got %v)", key, fe.ActualTag(), fe.Value()))
		}
	}

	switch c.Route.Source {
	case RouteSourceURL:
		if c.Route.URL == "" {
			errs = append(errs, "route.url is required for the url source")
		}
	case RouteSourcePostgres:
		if c.Route.ID == "" {
			errs = append(errs, "route.id is required for the postgres source")
		}
		if c.Database.Host == "" {
			errs = append(errs, "database.host is required for the postgres source")
		}
		if c.Database.User == "" {
			errs = append(errs, "database.user is required for the postgres source")
		}
		if c.Database.DBName == "" {
			errs = append(errs, "database.dbname is required for the postgres source")
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
