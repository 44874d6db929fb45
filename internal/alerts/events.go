package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/eternisai/fire-alerts/internal/logger"
	"github.com/nats-io/nats.go"
)

const DefaultEventsSubject = "alerts.dispatched"

// Publisher is the subset of *nats.Conn used for events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSEvents publishes a Result for every finished dispatch.
type NATSEvents struct {
	conn    Publisher
	subject string
}

// NewNATSEvents returns nil if conn is nil.
func NewNATSEvents(conn Publisher, subject string) *NATSEvents {
	if conn == nil {
		return nil
	}
	if subject == "" {
		subject = DefaultEventsSubject
	}
	return &NATSEvents{conn: conn, subject: subject}
}

// PublishDispatched publishes r as JSON.
func (e *NATSEvents) PublishDispatched(ctx context.Context, r *Result) error {
	if e == nil {
		return nil
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal dispatch event: %w", err)
	}
	if err := e.conn.Publish(e.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", e.subject, err)
	}
	return nil
}

// ConnectNATS dials url with reconnects enabled. Connection state changes are logged.
func ConnectNATS(url string, log *logger.Logger) (*nats.Conn, error) {
	log = log.WithComponent("nats")

	nc, err := nats.Connect(url,
		nats.Name("fire-alerts"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}
