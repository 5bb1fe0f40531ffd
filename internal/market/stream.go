package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nkbot/internal/logger"
)

// ErrMissingCredential is returned by Run before any dial attempt when the
// access token is empty. The caller decides whether that is fatal; the rest
// of the app keeps running in strategy-disabled mode.
var ErrMissingCredential = errors.New("market: access token is not configured")

const defaultRetryDelay = 5 * time.Second

// StreamConfig is the configuration contract for the upstream feed.
type StreamConfig struct {
	URL            string
	AccessToken    string
	APIVersion     string
	InstrumentKeys []string
	Mode           string
	RetryDelay     time.Duration
}

// Stream owns the websocket lifecycle for the market-data feed: dial,
// subscribe, receive, reconnect. Messages are delivered as opaque buffers;
// decoding belongs to the handler.
type Stream struct {
	cfg     StreamConfig
	handler Handler

	statsMu sync.Mutex
	stats   StreamStats
}

// NewStream builds a feed session. The handler is injected at construction
// and cannot be swapped afterwards.
func NewStream(cfg StreamConfig, h Handler) (*Stream, error) {
	if h == nil {
		return nil, fmt.Errorf("market: handler is required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("market: feed url is required")
	}
	if len(cfg.InstrumentKeys) == 0 {
		return nil, fmt.Errorf("market: instrument keys are required")
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Mode == "" {
		cfg.Mode = "full"
	}
	return &Stream{cfg: cfg, handler: h}, nil
}

// Run drives the connect→subscribe→receive cycle until ctx is cancelled.
// Every connection or read error triggers a full reconnect after a fixed
// delay; there is no retry cap.
func (s *Stream) Run(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.AccessToken) == "" {
		return ErrMissingCredential
	}
	logger.Infof("[feed] connecting to %s (%d instruments)", s.cfg.URL, len(s.cfg.InstrumentKeys))
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.recordReconnect(err)
		logger.Warnf("[feed] connection lost: %v, retrying in %s", err, s.cfg.RetryDelay)
		if !sleepWithContext(ctx, s.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

func (s *Stream) runOnce(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	header.Set("Api-Version", s.cfg.APIVersion)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	if err := s.subscribe(conn); err != nil {
		s.recordSubscribeError(err)
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Infof("[feed] connected, subscribed %d instruments mode=%s", len(s.cfg.InstrumentKeys), s.cfg.Mode)

	// ReadMessage has no context support; unblock it by closing the
	// connection when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handler.HandleMessage(ctx, payload)
	}
}

type subscribeRequest struct {
	GUID   string        `json:"guid"`
	Method string        `json:"method"`
	Data   subscribeData `json:"data"`
}

type subscribeData struct {
	InstrumentKeys []string `json:"instrumentKeys"`
	Mode           string   `json:"mode"`
}

// subscribe sends exactly one subscription frame for the full instrument
// list. A fresh connection has no memory of prior subscriptions, so Run
// calls this again after every reconnect.
func (s *Stream) subscribe(conn *websocket.Conn) error {
	req := subscribeRequest{
		GUID:   uuid.NewString(),
		Method: "sub",
		Data: subscribeData{
			InstrumentKeys: s.cfg.InstrumentKeys,
			Mode:           s.cfg.Mode,
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, payload)
}

func (s *Stream) Stats() StreamStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Stream) recordReconnect(err error) {
	s.statsMu.Lock()
	s.stats.Reconnects++
	if err != nil && err.Error() != "" {
		s.stats.LastError = err.Error()
	}
	s.statsMu.Unlock()
}

func (s *Stream) recordSubscribeError(err error) {
	if err == nil {
		return
	}
	s.statsMu.Lock()
	s.stats.SubscribeErrors++
	s.stats.LastError = err.Error()
	s.statsMu.Unlock()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
