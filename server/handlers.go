package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"NoteFM/config"
	"NoteFM/core/auth"
	"NoteFM/core/browser"
	"NoteFM/core/bus"
	"NoteFM/core/meta"
	"NoteFM/core/player"
	"NoteFM/core/voice"
	"NoteFM/model"
	"NoteFM/repository"
	"NoteFM/storage"
)

type contextKey string

const (
	ctxKeyUserID   contextKey = "userID"
	ctxKeyUsername contextKey = "username"
)

// APIHandler carries the repositories and shared services used by HTTP handlers.
type APIHandler struct {
	cfg       *config.Config
	userRepo  repository.UserRepository
	attRepo   repository.AttachmentRepository
	voiceRepo repository.VoiceRepository
	fetcher   *meta.Fetcher
	hub       *bus.EditorHub
	aiClient  voice.AIClient

	// 每个用户一个共享播放器和语音协调器，按需创建
	mu           sync.Mutex
	players      map[int64]*player.Player
	pollerCancel map[int64]context.CancelFunc
	browsers     map[string]*browser.Browser
	coordinators map[int64]*voice.Coordinator

	baseCtx context.Context
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(ctx context.Context, cfg *config.Config, userRepo repository.UserRepository,
	attRepo repository.AttachmentRepository, voiceRepo repository.VoiceRepository,
	fetcher *meta.Fetcher, hub *bus.EditorHub, aiClient voice.AIClient) *APIHandler {
	return &APIHandler{
		cfg:          cfg,
		userRepo:     userRepo,
		attRepo:      attRepo,
		voiceRepo:    voiceRepo,
		fetcher:      fetcher,
		hub:          hub,
		aiClient:     aiClient,
		players:      make(map[int64]*player.Player),
		pollerCancel: make(map[int64]context.CancelFunc),
		browsers:     make(map[string]*browser.Browser),
		coordinators: make(map[int64]*voice.Coordinator),
		baseCtx:      ctx,
	}
}

// getPlayer 取出用户的共享播放器，首次访问时创建并启动进度采样
func (h *APIHandler) getPlayer(userID int64) *player.Player {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.players[userID]; ok {
		return p
	}

	p := player.NewPlayer(userID)
	h.players[userID] = p

	pollCtx, cancel := context.WithCancel(h.baseCtx)
	h.pollerCancel[userID] = cancel

	poller := player.NewPoller(p, h.cfg.ProgressInterval, func(u player.Update) {
		h.hub.Publish(userID, &model.WebSocketMessage{Type: "progress", Payload: u})
	})
	go poller.Run(pollCtx)

	return p
}

// getBrowser 取出某个用户在某篇笔记上的附件浏览器
func (h *APIHandler) getBrowser(userID, noteID int64) *browser.Browser {
	p := h.getPlayer(userID)

	h.mu.Lock()
	defer h.mu.Unlock()

	key := fmt.Sprintf("%d:%d", userID, noteID)
	if b, ok := h.browsers[key]; ok {
		return b
	}

	b := browser.New(noteID, h.attRepo, h.fetcher, p, resolveStreamURL, h.cfg.VisibleLimit)
	h.browsers[key] = b
	return b
}

// getCoordinator 取出用户的语音AI协调器
func (h *APIHandler) getCoordinator(userID int64) *voice.Coordinator {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.coordinators[userID]; ok {
		return c
	}

	notifier := bus.NewUserNotifier(h.hub, userID)
	c := voice.NewCoordinator(h.cfg.AIEnabled, h.aiClient, h.voiceRepo, h.attRepo, notifier, notifier)
	h.coordinators[userID] = c
	return c
}

// resolveStreamURL 解析附件的播放链接
// 已上传到对象存储的附件用预签名链接，否则回退到本地流式接口。
func resolveStreamURL(ctx context.Context, att *model.Attachment) (string, error) {
	if att.ObjectKey != "" {
		return storage.PresignStreamURL(ctx, att.ObjectKey)
	}
	return fmt.Sprintf("/api/attachments/%s/stream", att.ID), nil
}

// writeJSON 输出JSON响应
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 输出JSON错误响应
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// AuthMiddleware is a middleware function that checks for a valid JWT token
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := auth.ParseToken(h.cfg.JWTSecret, parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxKeyUsername, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(ctxKeyUserID).(int64)
	if !ok {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// GetUsernameFromContext extracts the username from the request context
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(ctxKeyUsername).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
