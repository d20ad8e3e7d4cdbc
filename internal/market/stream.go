package market

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/solperp/permitgate/internal/pkg/logger"
)

const (
	ReconnBaseDelay = 1 * time.Second
	ReconnMaxDelay  = 30 * time.Second
	PingPeriod      = 15 * time.Second // Keep-alive interval
)

// MetaStream keeps a Registry fresh from the exchange's market-metadata
// websocket feed. Optional: the gateway works from static config if no
// feed URL is set.
type MetaStream struct {
	url      string
	registry *Registry

	mu          sync.Mutex
	conn        *websocket.Conn
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
}

type metaMessage struct {
	Channel string   `json:"channel"`
	Data    []Market `json:"data"`
}

func NewMetaStream(url string, registry *Registry) *MetaStream {
	ctx, cancel := context.WithCancel(context.Background())
	return &MetaStream{
		url:      url,
		registry: registry,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the connection loop in a background goroutine
func (s *MetaStream) Start() {
	go s.runLoop()
}

// Stop closes the stream.
func (s *MetaStream) Stop() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
}

func (s *MetaStream) runLoop() {
	delay := ReconnBaseDelay

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.connect(); err != nil {
			logger.Error("Market meta stream connection failed", "error", err, "retry_in", delay)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(delay):
			}
			delay *= 2
			if delay > ReconnMaxDelay {
				delay = ReconnMaxDelay
			}
			continue
		}

		delay = ReconnBaseDelay
		s.readLoop()
	}
}

func (s *MetaStream) connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.isConnected = true
	s.mu.Unlock()

	logger.Info("Market meta stream connected", "url", s.url)
	go s.pingLoop(conn)
	return nil
}

func (s *MetaStream) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

func (s *MetaStream) readLoop() {
	defer func() {
		s.mu.Lock()
		s.isConnected = false
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			logger.Warn("Market meta stream read failed", "error", err)
			return
		}

		var msg metaMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Warn("Market meta stream bad payload", "error", err)
			continue
		}
		if msg.Channel != "markets" {
			continue
		}
		for _, m := range msg.Data {
			s.registry.Upsert(m)
		}
		logger.Debug("Market registry refreshed", "markets", len(msg.Data))
	}
}
