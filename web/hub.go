package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"flashcw/logger"

	"github.com/gorilla/websocket"
)

// 推送给浏览器的事件类型
const (
	EventCharDecoded  = "char_decoded"
	EventSessionStart = "session_start"
	EventSessionEnd   = "session_end"
	EventStatus       = "status"
)

// Event 一条 WebSocket 消息
type Event struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Marshal 编码为 JSON
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Client 一个浏览器连接
type Client struct {
	ID       string
	conn     *websocket.Conn
	messages chan []byte
}

// Hub 管理 WebSocket 连接并广播解码事件
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logger.Logger
	mu         sync.RWMutex
}

// NewHub 创建 hub，需要再调用 Run
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run 事件循环，ctx 取消后关闭所有连接
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("WebSocket client registered", logger.String("client_id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.messages)
			}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client unregistered", logger.String("client_id", client.ID))

		case event := <-h.broadcast:
			data, err := event.Marshal()
			if err != nil {
				h.logger.Error("Failed to marshal event", logger.Error(err))
				continue
			}
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.messages <- data:
				default:
					// 客户端太慢，丢掉这一条
					h.logger.Warn("Client message buffer full, skipping", logger.String("client_id", client.ID))
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.messages)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast 非阻塞地发送事件，缓冲满时丢弃
func (h *Hub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event", logger.String("event_type", event.Type))
	}
}

// Publish 按类型和数据构造事件并广播
func (h *Hub) Publish(eventType string, data map[string]interface{}) {
	h.Broadcast(Event{Type: eventType, Timestamp: time.Now(), Data: data})
}

// Handler /ws 的处理函数
func (h *Hub) Handler() http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade 已经写过错误响应
			h.logger.Debug("WebSocket upgrade failed", logger.Error(err))
			return
		}
		client := &Client{ID: r.RemoteAddr, conn: conn, messages: make(chan []byte, 256)}
		select {
		case h.register <- client:
		case <-h.done:
			_ = conn.Close()
			return
		}

		// 只读不处理，用来发现连接断开
		go func() {
			defer func() {
				select {
				case h.unregister <- client:
				case <-h.done:
				}
				_ = client.conn.Close()
			}()
			client.conn.SetReadLimit(1024)
			for {
				if _, _, err := client.conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		go func() {
			for msg := range client.messages {
				_ = client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					_ = client.conn.Close()
				}
			}
			_ = client.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}()
	})
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
