package bus

import (
	"NoteFM/logger"
	"NoteFM/model"
)

// Notification 通知载荷
type Notification struct {
	Level   string `json:"level"` // "info"、"warn"、"error"
	Message string `json:"message"`
}

// UserNotifier 把通知和编辑器事件定向到某个用户的编辑器连接
// 实现 voice 包的 Notifier 和 EditorBus 接口。
type UserNotifier struct {
	hub    *EditorHub
	userID int64
}

// NewUserNotifier 创建用户通知器
func NewUserNotifier(hub *EditorHub, userID int64) *UserNotifier {
	return &UserNotifier{hub: hub, userID: userID}
}

// Notify 向用户推送一条提示
func (n *UserNotifier) Notify(level, message string) {
	logger.Info("推送用户提示",
		logger.Int64("user", n.userID),
		logger.String("level", level),
		logger.String("message", message))

	n.hub.Publish(n.userID, &model.WebSocketMessage{
		Type:    "notify",
		Payload: Notification{Level: level, Message: message},
	})
}

// Emit 向用户的编辑器连接发送事件，即发即忘
func (n *UserNotifier) Emit(event string, payload interface{}) {
	n.hub.Publish(n.userID, &model.WebSocketMessage{
		Type:    event,
		Payload: payload,
	})
}
