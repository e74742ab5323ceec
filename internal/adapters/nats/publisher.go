package natsadapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

// StateEvent is the payload published on replay.state.
type StateEvent struct {
	domain.ReplayStatus
	PublishedAt time.Time `json:"published_at"`
}

// Publisher implements ports.EventPublisher using core NATS. State events
// are fire-and-forget; subscribers that miss one catch up on the next.
type Publisher struct {
	conn *nats.Conn
	now  func() time.Time
}

// NewPublisher creates a publisher on an existing connection.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn, now: time.Now}
}

// PublishStatus sends status to replay.state.
func (p *Publisher) PublishStatus(ctx context.Context, status *domain.ReplayStatus) error {
	data, err := EncodeState(status, p.now())
	if err != nil {
		return err
	}
	return p.conn.Publish(SubjectState, data)
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// EncodeState builds the replay.state payload.
func EncodeState(status *domain.ReplayStatus, at time.Time) ([]byte, error) {
	return json.Marshal(StateEvent{ReplayStatus: *status, PublishedAt: at.UTC()})
}
