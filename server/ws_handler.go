package server

import (
	"context"
	"net/http"

	"NoteFM/core/auth"
	"NoteFM/core/bus"
	"NoteFM/logger"
	"NoteFM/model"

	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EditorWSHandler 编辑器 WebSocket 入口
// 浏览器原生 WebSocket 无法带自定义头，token 从查询参数取。
func (h *APIHandler) EditorWSHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusUnauthorized, "token is required")
		return
	}

	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := &bus.Client{
		Hub:    h.hub,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		UserID: claims.UserID,
	}
	h.hub.Register(client)

	// 确保进度采样已为该用户启动
	h.getPlayer(claims.UserID)

	go client.WritePump()
	go client.ReadPump(h.baseCtx, h.handleEditorMessage)
}

// handleEditorMessage 处理编辑器端上行消息
func (h *APIHandler) handleEditorMessage(ctx context.Context, client *bus.Client, msg *model.WebSocketMessage) {
	switch msg.Type {
	case "duration":
		// 播放端上报兜底时长
		payload, ok := msg.Payload.(map[string]interface{})
		if !ok {
			return
		}
		attachmentID, _ := payload["attachmentId"].(string)
		duration, _ := payload["duration"].(float64)
		if attachmentID != "" {
			h.getPlayer(client.UserID).ReportDuration(attachmentID, duration)
		}
	default:
		logger.Debug("未知的编辑器消息类型", logger.String("type", msg.Type))
	}
}
