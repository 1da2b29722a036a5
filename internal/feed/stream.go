// Package feed - поток событий pump.fun из websocket и агрегация сделок в контекст анализа.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pumpstrategy/pkg/utils"
)

// StreamConfig - настройки websocket соединения
type StreamConfig struct {
	URL string

	// Backoff переподключения: 2s, 4s, 8s, 16s, 16s...
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxRetries - подряд неудачных попыток до остановки (0 = бесконечно)
	MaxRetries int

	ConnectTimeout time.Duration
	PingInterval   time.Duration
	PongTimeout    time.Duration
}

// DefaultStreamConfig возвращает настройки по умолчанию
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		URL:            "wss://pumpportal.fun/api/data",
		InitialDelay:   2 * time.Second,
		MaxDelay:       16 * time.Second,
		MaxRetries:     0,
		ConnectTimeout: 10 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
	}
}

// ErrNotConnected - отправка без активного соединения
var ErrNotConnected = errors.New("stream not connected")

// ErrMaxRetries - исчерпаны попытки переподключения
var ErrMaxRetries = errors.New("max reconnect attempts reached")

// StreamState - состояние соединения
type StreamState int32

const (
	StateDisconnected StreamState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream - websocket соединение с автоматическим переподключением.
//
// Run держит соединение до отмены ctx: читает сообщения в OnMessage,
// шлёт ping, при разрыве ждёт с экспоненциальным backoff и заново
// отправляет все подписки.
type Stream struct {
	config StreamConfig

	conn    *websocket.Conn
	connMu  sync.RWMutex
	writeMu sync.Mutex

	state   int32 // atomic StreamState
	retries int32 // atomic

	onMessage func([]byte)
	onConnect func()

	subscriptions   []interface{}
	subscriptionsMu sync.RWMutex

	logger *utils.Logger
}

// NewStream создаёт поток. onMessage вызывается из горутины чтения.
func NewStream(config StreamConfig, onMessage func([]byte), logger *utils.Logger) *Stream {
	defaults := DefaultStreamConfig()
	if config.InitialDelay <= 0 {
		config.InitialDelay = defaults.InitialDelay
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.PongTimeout <= 0 {
		config.PongTimeout = defaults.PongTimeout
	}

	return &Stream{
		config:    config,
		onMessage: onMessage,
		logger:    utils.OrGlobal(logger).WithComponent("feed_stream"),
	}
}

// SetOnConnect задаёт callback успешного (пере)подключения
func (s *Stream) SetOnConnect(fn func()) {
	s.onConnect = fn
}

// AddSubscription запоминает подписку и отправляет её, если соединение активно
func (s *Stream) AddSubscription(sub interface{}) error {
	s.subscriptionsMu.Lock()
	s.subscriptions = append(s.subscriptions, sub)
	s.subscriptionsMu.Unlock()

	if s.State() != StateConnected {
		return nil
	}
	return s.Send(sub)
}

// Subscriptions - количество запомненных подписок
func (s *Stream) Subscriptions() int {
	s.subscriptionsMu.RLock()
	defer s.subscriptionsMu.RUnlock()
	return len(s.subscriptions)
}

// State возвращает текущее состояние
func (s *Stream) State() StreamState {
	return StreamState(atomic.LoadInt32(&s.state))
}

// IsConnected - соединение установлено
func (s *Stream) IsConnected() bool {
	return s.State() == StateConnected
}

// Retries - неудачных попыток подключения подряд
func (s *Stream) Retries() int {
	return int(atomic.LoadInt32(&s.retries))
}

func (s *Stream) setState(st StreamState) {
	atomic.StoreInt32(&s.state, int32(st))
	StreamConnected.Set(boolGauge(st == StateConnected))
}

// Send отправляет JSON сообщение
func (s *Stream) Send(msg interface{}) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil || s.State() != StateConnected {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.PongTimeout))
	return conn.WriteJSON(msg)
}

// Run подключается и держит соединение до отмены ctx.
// Возвращает ctx.Err() или ErrMaxRetries.
func (s *Stream) Run(ctx context.Context) error {
	defer s.setState(StateClosed)

	delay := s.config.InitialDelay
	for {
		s.setState(StateConnecting)
		err := s.connect(ctx)
		if err == nil {
			atomic.StoreInt32(&s.retries, 0)
			delay = s.config.InitialDelay

			err = s.serve(ctx)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("stream disconnected", utils.Err(err))
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("stream connect failed", utils.Err(err))
		}

		s.setState(StateReconnecting)
		StreamReconnects.Inc()

		retries := atomic.AddInt32(&s.retries, 1)
		if s.config.MaxRetries > 0 && int(retries) > s.config.MaxRetries {
			s.setState(StateDisconnected)
			return fmt.Errorf("%w (%d)", ErrMaxRetries, s.config.MaxRetries)
		}

		s.logger.Info("reconnecting",
			utils.Dur("delay", delay),
			utils.Int("attempt", int(retries)),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > s.config.MaxDelay {
			delay = s.config.MaxDelay
		}
	}
}

// connect устанавливает соединение и восстанавливает подписки
func (s *Stream) connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: s.config.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, s.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.config.URL, err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	s.setState(StateConnected)

	if err := s.resubscribe(); err != nil {
		s.closeConn()
		s.setState(StateDisconnected)
		return err
	}

	s.logger.Info("stream connected", utils.String("url", s.config.URL))
	if s.onConnect != nil {
		s.onConnect()
	}
	return nil
}

func (s *Stream) resubscribe() error {
	s.subscriptionsMu.RLock()
	subs := make([]interface{}, len(s.subscriptions))
	copy(subs, s.subscriptions)
	s.subscriptionsMu.RUnlock()

	for _, sub := range subs {
		if err := s.Send(sub); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}
	if len(subs) > 0 {
		s.logger.Debug("resubscribed", utils.Int("subscriptions", len(subs)))
	}
	return nil
}

// serve читает сообщения до ошибки, параллельно отправляя ping
func (s *Stream) serve(ctx context.Context) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	done := make(chan struct{})
	defer close(done)

	// закрытие соединения прерывает ReadMessage при отмене ctx
	go func() {
		select {
		case <-ctx.Done():
			s.closeConn()
		case <-done:
		}
	}()
	go s.pingLoop(conn, done)

	defer s.closeConn()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		StreamMessages.Inc()
		if s.onMessage != nil {
			s.onMessage(message)
		}
	}
}

func (s *Stream) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.PongTimeout))
			s.writeMu.Unlock()
			if err != nil {
				s.logger.Debug("ping failed", utils.Err(err))
				s.closeConn()
				return
			}
		}
	}
}

func (s *Stream) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
