package server

import (
	"encoding/json"
	"net/http"

	"NoteFM/cache"
	"NoteFM/core/player"
	"NoteFM/logger"
)

// TogglePlayHandler 处理附件行上的播放按钮
func (h *APIHandler) TogglePlayHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		NoteID       int64  `json:"noteId"`
		AttachmentID string `json:"attachmentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttachmentID == "" {
		writeError(w, http.StatusBadRequest, "attachmentId is required")
		return
	}

	b := h.getBrowser(userID, req.NoteID)
	snap, err := b.TogglePlay(r.Context(), req.AttachmentID)
	if err != nil {
		logger.Error("播放切换失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to toggle playback")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// SeekHandler 处理进度条点击和拖拽
// 拖拽过程中前端会连续发送多次请求，每次都按比例换算为绝对位置。
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		AttachmentID string   `json:"attachmentId"`
		Fraction     *float64 `json:"fraction,omitempty"` // 进度条点击位置比例
		Seconds      *float64 `json:"seconds,omitempty"`  // 或直接给绝对秒数
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttachmentID == "" {
		writeError(w, http.StatusBadRequest, "attachmentId is required")
		return
	}

	p := h.getPlayer(userID)

	var snap player.Snapshot
	switch {
	case req.Fraction != nil:
		snap = p.SeekFraction(req.AttachmentID, *req.Fraction)
	case req.Seconds != nil:
		snap = p.SeekTo(req.AttachmentID, *req.Seconds)
	default:
		writeError(w, http.StatusBadRequest, "fraction or seconds is required")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// PlayHandler 恢复播放
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, h.getPlayer(userID).Play())
}

// PauseHandler 暂停播放
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, h.getPlayer(userID).Pause())
}

// NextHandler 切换到下一首
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, h.getPlayer(userID).Next(r.Context()))
}

// PrevHandler 切换到上一首
func (h *APIHandler) PrevHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, h.getPlayer(userID).Prev(r.Context()))
}

// PlayerStateHandler 返回播放器当前状态及格式化的进度
func (h *APIHandler) PlayerStateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	snap := h.getPlayer(userID).Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":    snap,
		"progress": player.MakeUpdate(snap),
	})
}

// QueueHandler 返回共享播放队列
func (h *APIHandler) QueueHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	// 优先读内存队列，进程重启后回退到Redis镜像
	entries := h.getPlayer(userID).Queue()
	if len(entries) == 0 {
		cached, err := cache.GetQueue(r.Context(), userID)
		if err != nil {
			logger.Warn("读取队列镜像失败", logger.ErrorField(err))
		} else {
			entries = cached
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"queue": entries})
}

// ReportDurationHandler 播放端上报媒体时长，作为探测失败时的兜底
func (h *APIHandler) ReportDurationHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req struct {
		AttachmentID string  `json:"attachmentId"`
		Duration     float64 `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AttachmentID == "" {
		writeError(w, http.StatusBadRequest, "attachmentId is required")
		return
	}

	h.getPlayer(userID).ReportDuration(req.AttachmentID, req.Duration)
	w.WriteHeader(http.StatusNoContent)
}
