package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

// subjectPrefix follows the {domain}.{resource} convention; the
// instance is appended as the final token.
const subjectPrefix = "wessaal.events"

// EventSubject returns the NATS subject for an instance's envelope
// stream. Characters with structural meaning in subjects are replaced.
func EventSubject(instance string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '-'
		}
		return r
	}, instance)
	return subjectPrefix + "." + sanitized
}

// Mirror republishes envelopes onto NATS so services beyond the
// browser fan-out can consume the stream.
type Mirror struct {
	conn *nats.Conn
	log  *logging.Logger
}

// NewMirror connects to the NATS server at url.
func NewMirror(url string, log *logging.Logger) (*Mirror, error) {
	conn, err := nats.Connect(url,
		nats.Name("wessaal-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logging.Err(err))
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Mirror{conn: conn, log: log}, nil
}

// Publish mirrors env to its instance subject.
func (m *Mirror) Publish(ctx context.Context, env model.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return m.conn.Publish(EventSubject(env.Instance), data)
}

// Close drains the connection, letting buffered publishes flush.
func (m *Mirror) Close() {
	if err := m.conn.Drain(); err != nil {
		m.log.Warn("nats drain failed", logging.Err(err))
	}
}
