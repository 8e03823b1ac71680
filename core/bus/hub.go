package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"NoteFM/logger"
	"NoteFM/model"

	"github.com/gorilla/websocket"
)

// Client 编辑器 WebSocket 客户端
// 一个用户可以同时打开多个编辑器窗口，每个窗口一个连接。
type Client struct {
	Hub    *EditorHub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID int64
}

// EditorHub 编辑器事件中心
// 进度推送、通知和编辑器插入事件都经由这里下发到用户的编辑器连接。
type EditorHub struct {
	// 用户 -> 客户端集合
	users map[int64]map[*Client]bool

	// 注册/注销通道
	register   chan *Client
	unregister chan *Client

	// 广播通道
	broadcast chan *userMessage

	mu sync.RWMutex

	done chan struct{}
}

type userMessage struct {
	userID  int64
	message []byte
}

// NewEditorHub 创建编辑器事件中心
func NewEditorHub() *EditorHub {
	return &EditorHub{
		users:      make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *userMessage, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *EditorHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.sendToUser(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *EditorHub) Stop() {
	close(h.done)
}

func (h *EditorHub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]bool)
	}
	h.users[client.UserID][client] = true

	logger.Info("编辑器连接已注册", logger.Int64("user", client.UserID))
}

func (h *EditorHub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[client.UserID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.Send)
			if len(clients) == 0 {
				delete(h.users, client.UserID)
			}
		}
	}

	logger.Info("编辑器连接已注销", logger.Int64("user", client.UserID))
}

func (h *EditorHub) sendToUser(msg *userMessage) {
	h.mu.RLock()
	clients, ok := h.users[msg.userID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// 复制客户端列表以避免长时间持有锁
	clientList := make([]*Client, 0, len(clients))
	for client := range clients {
		clientList = append(clientList, client)
	}
	h.mu.RUnlock()

	for _, client := range clientList {
		select {
		case client.Send <- msg.message:
		default:
			// 发送缓冲区满，移除客户端
			// 这里运行在主循环内，必须直接注销而不能走 unregister 通道
			h.unregisterClient(client)
		}
	}
}

func (h *EditorHub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.users {
		for client := range clients {
			close(client.Send)
		}
	}
	h.users = make(map[int64]map[*Client]bool)
}

// Register 注册客户端
func (h *EditorHub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *EditorHub) Unregister(client *Client) {
	h.unregister <- client
}

// Publish 向用户的所有编辑器连接推送一条消息，即发即忘
func (h *EditorHub) Publish(userID int64, msg *model.WebSocketMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("编辑器消息序列化失败", logger.ErrorField(err))
		return
	}

	select {
	case h.broadcast <- &userMessage{userID: userID, message: data}:
	default:
		// 广播通道满，丢弃消息
		logger.Warn("编辑器广播通道已满，消息被丢弃", logger.Int64("user", userID))
	}
}

// ClientCount 返回用户当前的编辑器连接数
func (h *EditorHub) ClientCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// ========== Client 方法 ==========

// ReadPump 读取消息循环
// 编辑器端只上报心跳和播放端兜底时长，其余消息交给 handler。
func (c *Client) ReadPump(ctx context.Context, handler func(ctx context.Context, client *Client, msg *model.WebSocketMessage)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(4096) // 4KB
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := c.Conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket read error",
						logger.ErrorField(err),
						logger.Int64("user", c.UserID))
				}
				return
			}

			var msg model.WebSocketMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Warn("invalid message format", logger.ErrorField(err))
				continue
			}

			if handler != nil {
				handler(ctx, c, &msg)
			}
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub 关闭了通道
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// 合并发送队列中的消息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
