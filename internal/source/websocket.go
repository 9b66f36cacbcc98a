package source

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// WebSocketSource connects to the upstream socket and decodes
// {"event":...,"data":...} frames into raw events. Connection loss is
// handled with capped exponential backoff; lifecycle transitions are
// logged but otherwise not acted on.
type WebSocketSource struct {
	url    string
	dialer *websocket.Dialer
	named  map[string][]Handler
	any    []Handler
	log    *logging.Logger
}

// wireFrame is the upstream wire format.
type wireFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewWebSocket builds a source for the configured upstream. In
// single-tenant mode the endpoint is suffixed with the instance
// segment.
func NewWebSocket(cfg config.UpstreamConfig, log *logging.Logger) *WebSocketSource {
	return &WebSocketSource{
		url:    EndpointURL(cfg),
		dialer: websocket.DefaultDialer,
		named:  make(map[string][]Handler),
		log:    log.With(logging.Stage("upstream")),
	}
}

// EndpointURL derives the connection URL from the upstream config.
func EndpointURL(cfg config.UpstreamConfig) string {
	url := cfg.Endpoint
	if !cfg.Global && cfg.Instance != "" {
		url = strings.TrimRight(url, "/") + "/" + cfg.Instance
	}
	return url
}

// On registers a handler for one event name.
func (s *WebSocketSource) On(name string, h Handler) {
	s.named[name] = append(s.named[name], h)
}

// OnAny registers a catch-all handler.
func (s *WebSocketSource) OnAny(h Handler) {
	s.any = append(s.any, h)
}

// Run connects to the upstream and pumps events until ctx is
// cancelled, reconnecting with capped exponential backoff on failure.
func (s *WebSocketSource) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn("connect_error", "url", s.url, logging.Err(err),
				"retry_in", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}

		s.log.Info("connect", "url", s.url)
		backoff = initialBackoff

		s.readLoop(ctx, conn)
		s.log.Info("disconnect", "url", s.url)

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (s *WebSocketSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var f wireFrame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			s.log.Debug("skipping undecodable frame", logging.Err(err))
			continue
		}

		s.dispatch(model.RawEvent{Name: f.Event, Payload: f.Data})
	}
}

func (s *WebSocketSource) dispatch(raw model.RawEvent) {
	for _, h := range s.named[raw.Name] {
		h(raw)
	}
	for _, h := range s.any {
		h(raw)
	}
}
