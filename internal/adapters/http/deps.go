package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routereplay/internal/adapters/postgres"
	"github.com/samirrijal/routereplay/internal/adapters/valkey"
	"github.com/samirrijal/routereplay/internal/core/usecases"
)

// Dependencies holds everything the HTTP and WebSocket handlers need.
// NATS, DB and Cache are optional.
type Dependencies struct {
	Replay    *usecases.ReplayService
	Views     *ViewHub
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	StaticDir string
	Version   string
}
