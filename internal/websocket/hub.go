package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 推送主题
const (
	TopicEmails = "emails"
	TopicOrders = "orders"
)

// upgraderFactory 创建带有 Origin 验证的 WebSocket 升级器
func upgraderFactory(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			for _, origin := range allowedOrigins {
				if origin == "*" {
					return true
				}
			}

			// 没有 Origin 视为同源请求
			requestOrigin := r.Header.Get("Origin")
			if requestOrigin == "" {
				return true
			}

			for _, origin := range allowedOrigins {
				if requestOrigin == origin {
					return true
				}
			}
			return false
		},
	}
}

// MessageType 定义WebSocket消息类型
type MessageType string

const (
	MessageTypeSnapshot    MessageType = "snapshot"
	MessageTypePing        MessageType = "ping"
	MessageTypePong        MessageType = "pong"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// Message 定义WebSocket消息结构
type Message struct {
	Type      MessageType     `json:"type"`
	Topic     string          `json:"topic,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// SnapshotProvider 返回某个主题的当前数据，新订阅者会立即收到一份
type SnapshotProvider func() any

// ConnectionObserver 连接数变化时回调，用于指标统计
type ConnectionObserver interface {
	SetConnections(n int)
}

type nopConnectionObserver struct{}

func (nopConnectionObserver) SetConnections(int) {}

// Hub 管理所有WebSocket连接与主题订阅
//
// 某个主题有订阅者即表示浏览器正在查看该列表，列表控制器据此决定是否轮询。
type Hub struct {
	clients        map[string]*Client            // clientID -> Client
	topics         map[string]map[string]*Client // topic -> clientID -> Client
	providers      map[string]SnapshotProvider
	register       chan *Client
	unregister     chan *Client
	broadcast      chan *BroadcastMessage
	done           chan struct{}
	mu             sync.RWMutex
	log            *zap.Logger
	observer       ConnectionObserver
	allowedOrigins []string
}

// BroadcastMessage 广播消息
type BroadcastMessage struct {
	Topic   string
	Message *Message
}

// NewHub 创建WebSocket Hub
//
// 参数:
//   - allowedOrigins: 允许的 Origin 列表，为空时允许所有来源
//   - topics: 允许订阅的主题
//   - log: 日志记录器，可以为 nil
func NewHub(allowedOrigins []string, topics []string, log *zap.Logger) *Hub {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log == nil {
		log = zap.NewNop()
	}

	providers := make(map[string]SnapshotProvider, len(topics))
	for _, topic := range topics {
		providers[topic] = nil
	}

	return &Hub{
		clients:        make(map[string]*Client),
		topics:         make(map[string]map[string]*Client),
		providers:      providers,
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		broadcast:      make(chan *BroadcastMessage, 256),
		done:           make(chan struct{}),
		log:            log,
		observer:       nopConnectionObserver{},
		allowedOrigins: allowedOrigins,
	}
}

// SetObserver 设置连接数观察者，需要在 Run 之前调用
func (h *Hub) SetObserver(o ConnectionObserver) {
	if o != nil {
		h.observer = o
	}
}

// SetSnapshotProvider 设置主题的快照来源，需要在 Run 之前调用
func (h *Hub) SetSnapshotProvider(topic string, p SnapshotProvider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.providers[topic] = p
}

// Run 启动Hub，ctx 结束时关闭所有客户端
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("websocket hub stopped")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			n := len(h.clients)
			h.mu.Unlock()
			h.observer.SetConnections(n)
			h.log.Debug("client registered", zap.String("id", client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				for topic := range client.topics {
					h.removeFromTopicLocked(topic, client.ID)
				}
				delete(h.clients, client.ID)
				client.closeSend()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.observer.SetConnections(n)
			h.log.Debug("client unregistered", zap.String("id", client.ID))

		case msg := <-h.broadcast:
			h.broadcastToTopic(msg.Topic, msg.Message)

		case <-ticker.C:
			h.pingAllClients()
		}
	}
}

// HasSubscribers 主题当前是否有订阅者
func (h *Hub) HasSubscribers(topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic]) > 0
}

// Publish 向主题的所有订阅者推送快照，没有订阅者时直接返回
//
// 不会阻塞：广播队列已满时丢弃本次推送。
func (h *Hub) Publish(topic string, payload any) {
	if !h.HasSubscribers(topic) {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("failed to marshal snapshot", zap.String("topic", topic), zap.Error(err))
		return
	}

	msg := &BroadcastMessage{
		Topic: topic,
		Message: &Message{
			Type:      MessageTypeSnapshot,
			Topic:     topic,
			Data:      data,
			Timestamp: time.Now(),
		},
	}

	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, dropping snapshot", zap.String("topic", topic))
	}
}

// broadcastToTopic 向订阅主题的客户端广播消息
func (h *Hub) broadcastToTopic(topic string, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[topic]))
	for _, client := range h.topics[topic] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.trySend(data) {
			h.log.Warn("client channel blocked, skipping", zap.String("clientID", client.ID))
		}
	}
}

// pingAllClients 向所有客户端发送ping
func (h *Hub) pingAllClients() {
	data, err := json.Marshal(&Message{Type: MessageTypePing, Timestamp: time.Now()})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.trySend(data)
	}
}

// closeAllClients 关闭所有客户端连接
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		client.closeSend()
	}
	h.clients = make(map[string]*Client)
	h.topics = make(map[string]map[string]*Client)
	h.observer.SetConnections(0)
}

func (h *Hub) subscribe(c *Client, topic string) (SnapshotProvider, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	provider, ok := h.providers[topic]
	if !ok {
		return nil, false
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*Client)
	}
	h.topics[topic][c.ID] = c
	return provider, true
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopicLocked(topic, c.ID)
}

func (h *Hub) removeFromTopicLocked(topic, clientID string) {
	if clients, exists := h.topics[topic]; exists {
		delete(clients, clientID)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// HandleWebSocket 处理WebSocket连接
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	upgrader := upgraderFactory(hub.allowedOrigins)

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("failed to upgrade connection",
				zap.Error(err),
				zap.String("origin", c.Request.Header.Get("Origin")),
				zap.String("remote_addr", c.ClientIP()))
			return
		}

		client := newClient(uuid.NewString(), conn, hub)

		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}
