package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/agentarena/arena/internal/logging"
)

// NATSBus implements Bus over a NATS connection, for a deployment where
// the Broadcaster's subscribers live in a different process than the
// Orchestrator (§4.8).
type NATSBus struct {
	conn *nats.Conn
	log  *logging.Logger
}

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL           string
	ClientName    string
	MaxReconnects int
}

// NewNATSBus connects to NATS and returns a Bus backed by it.
func NewNATSBus(cfg NATSConfig, log *logging.Logger) (*NATSBus, error) {
	if log == nil {
		log = logging.Default()
	}
	bus := &NATSBus{log: log}

	maxReconnects := cfg.MaxReconnects
	if maxReconnects == 0 {
		maxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientName),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("broadcast: nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("broadcast: nats reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("broadcast: nats connection closed")
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	bus.conn = conn
	return bus, nil
}

// Publish marshals event as JSON and publishes it to subj.
func (b *NATSBus) Publish(subj string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if err := b.conn.Publish(subj, data); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}
	return nil
}

// Subscribe registers handler on subj, translating NATS-style "*"/">"
// wildcards directly (NATS handles the matching itself).
func (b *NATSBus) Subscribe(subj string, handler Handler) (Subscription, error) {
	sub, err := b.conn.Subscribe(natsSubject(subj), func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.log.WithError(err).Warn("broadcast: dropping malformed nats event")
			return
		}
		if err := handler(&event); err != nil {
			b.log.WithError(err).Warn("broadcast: nats subscriber handler failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subj, err)
	}
	return &natsSubscription{sub: sub}, nil
}

// Close drains and closes the underlying NATS connection.
func (b *NATSBus) Close() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// IsConnected reports whether the NATS connection is currently active.
func (b *NATSBus) IsConnected() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// natsSubject rewrites this package's single-star wildcard subject into
// NATS' own token-wildcard syntax (they already coincide for our "*").
func natsSubject(subj string) string {
	return subj
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Unsubscribe() error {
	return s.sub.Unsubscribe()
}

func (s *natsSubscription) IsValid() bool {
	return s.sub.IsValid()
}
