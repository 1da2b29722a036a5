package websocket

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"pumpstrategy/pkg/utils"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// pingPeriod должен быть меньше pongWait
	pingPeriod = (pongWait * 9) / 10

	// клиенты только читают поток; входящие сообщения - ping/close
	maxMessageSize = 4096

	clientSendBufferSize = 256
)

// Client - одно подключение к потоку оператора
type Client struct {
	conn *websocket.Conn
	hub  *Hub
	send chan []byte
}

// OriginChecker - проверка Origin при upgrade.
// Пустой Origin (не браузер) разрешен всегда.
type OriginChecker struct {
	allowed map[string]struct{}
}

// NewOriginChecker создает проверку по списку origins
func NewOriginChecker(origins []string) *OriginChecker {
	oc := &OriginChecker{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			oc.allowed[o] = struct{}{}
		}
	}
	return oc
}

// Check - разрешен ли origin
func (oc *OriginChecker) Check(origin string) bool {
	if origin == "" {
		return true
	}
	_, ok := oc.allowed[origin]
	return ok
}

// Handler возвращает http handler, переводящий запрос в websocket клиента hub
func Handler(hub *Hub, origins []string) http.HandlerFunc {
	checker := NewOriginChecker(origins)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return checker.Check(r.Header.Get("Origin"))
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Debug("websocket upgrade failed", utils.Err(err))
			return
		}

		client := &Client{
			conn: conn,
			hub:  hub,
			send: make(chan []byte, clientSendBufferSize),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump держит deadline по pong и ловит закрытие соединения
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error", utils.Err(err))
			}
			return
		}
	}
}

// writePump отправляет сообщения из send по одному websocket кадру и шлет ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
