package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routereplay/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using core NATS.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
	log  *slog.Logger
}

// NewSubscriber creates a subscriber sharing a NATS connection.
func NewSubscriber(conn *nats.Conn, log *slog.Logger) *Subscriber {
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{conn: conn, log: log}
}

// SubscribeControl delivers replay.control.<command> messages to handler.
// Requests with a reply subject get "ok" or the error text back.
func (s *Subscriber) SubscribeControl(ctx context.Context, handler func(ctx context.Context, cmd domain.ControlCommand) error) error {
	sub, err := s.conn.Subscribe(SubjectControlAll, func(msg *nats.Msg) {
		cmd, ok := CommandFromSubject(msg.Subject)
		var herr error
		if !ok {
			herr = fmt.Errorf("unknown command subject %q", msg.Subject)
		} else {
			herr = handler(ctx, cmd)
		}
		if herr != nil {
			s.log.Warn("control command failed", "subject", msg.Subject, "error", herr)
		}

		if msg.Reply == "" {
			return
		}
		reply := []byte("ok")
		if herr != nil {
			reply = []byte("error: " + herr.Error())
		}
		if err := msg.Respond(reply); err != nil {
			s.log.Debug("control reply failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectControlAll, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close removes every subscription.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}

// ControlSubject returns the subject a remote client publishes cmd on.
func ControlSubject(cmd domain.ControlCommand) string {
	return SubjectControlPrefix + string(cmd)
}

// CommandFromSubject extracts a known command from a control subject.
func CommandFromSubject(subject string) (domain.ControlCommand, bool) {
	rest, found := strings.CutPrefix(subject, SubjectControlPrefix)
	if !found {
		return "", false
	}
	cmd := domain.ControlCommand(rest)
	return cmd, cmd.Valid()
}
