// Package websocket - поток оператора: решения ядра и снимки состояния
// рассылаются всем подключенным клиентам /ws/stream.
package websocket

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// StateSource - снимки состояния ядра для периодической рассылки
type StateSource interface {
	PortfolioState() models.PortfolioState
	ChainState() models.ChainState
	ExecutionQuality() models.ExecutionQuality
}

// Hub управляет подключенными клиентами и рассылкой.
//
// Медленный клиент (переполненный буфер send) отключается,
// рассылка остальным не блокируется.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	dropped int64 // atomic

	now    func() time.Time
	logger *utils.Logger
}

// NewHub создает новый Hub
func NewHub(logger *utils.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		now:        time.Now,
		logger:     utils.OrGlobal(logger).WithComponent("ws_hub"),
	}
}

// Run обрабатывает регистрацию и рассылку до отмены ctx, затем закрывает всех клиентов
func (h *Hub) Run(ctx context.Context) error {
	defer func() {
		close(h.done)
		h.closeAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			OperatorClients.Set(float64(n))
			h.logger.Debug("client connected", utils.Int("clients", n))

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		h.remove(client)
	}
	if len(slow) > 0 {
		h.logger.Warn("slow clients removed", utils.Int("count", len(slow)))
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	OperatorClients.Set(float64(n))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()
	OperatorClients.Set(0)
}

// Broadcast сериализует сообщение и ставит в очередь рассылки.
// Полная очередь - сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer jsonBufferPool.Put(buf)

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("marshal broadcast message", utils.Err(err))
		return
	}

	data := bytes.TrimRight(buf.Bytes(), "\n")
	msg := make([]byte, len(data))
	copy(msg, data)

	select {
	case h.broadcast <- msg:
	default:
		atomic.AddInt64(&h.dropped, 1)
		MessagesDropped.Inc()
	}
}

// BroadcastDecision рассылает результат оценки входа
func (h *Hub) BroadcastDecision(ev bot.EntryEvaluation) {
	h.Broadcast(NewDecisionMessage(ev, h.now()))
}

// BroadcastState рассылает снимки портфеля, сети и исполнения
func (h *Hub) BroadcastState(src StateSource) {
	now := h.now()
	h.Broadcast(NewPortfolioMessage(src.PortfolioState(), now))
	h.Broadcast(NewChainMessage(src.ChainState(), now))
	h.Broadcast(NewExecutionMessage(src.ExecutionQuality(), now))
}

// RunSnapshots рассылает состояние с интервалом, пока есть клиенты
func (h *Hub) RunSnapshots(ctx context.Context, src StateSource, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if h.ClientCount() > 0 {
				h.BroadcastState(src)
			}
		}
	}
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages - сообщений, не попавших в очередь рассылки
func (h *Hub) DroppedMessages() int64 {
	return atomic.LoadInt64(&h.dropped)
}
