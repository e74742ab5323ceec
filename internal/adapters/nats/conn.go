package natsadapter

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects used by the replay.
const (
	SubjectState         = "replay.state"
	SubjectControlPrefix = "replay.control."
	SubjectControlAll    = SubjectControlPrefix + "*"
)

// Connect opens a NATS connection that keeps retrying in the background, so a
// broker outage never blocks start-up.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
