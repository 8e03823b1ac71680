package server

import (
	"net/http"

	"NoteFM/core/voice"
	"NoteFM/logger"

	"github.com/gorilla/mux"
)

// TranscribeHandler 对音频附件发起转写
func (h *APIHandler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	attachmentID := mux.Vars(r)["id"]
	coord := h.getCoordinator(userID)

	text, err := coord.Transcribe(r.Context(), attachmentID)
	if err != nil {
		if err == voice.ErrAIDisabled {
			writeError(w, http.StatusServiceUnavailable, "AI features are disabled")
			return
		}
		logger.Error("转写请求失败", logger.String("attachmentId", attachmentID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Transcription failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"attachmentId": attachmentID,
		"transcript":   text,
	})
}

// SummarizeHandler 生成音频附件的摘要并插入编辑器
func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	attachmentID := mux.Vars(r)["id"]
	coord := h.getCoordinator(userID)

	summary, err := coord.Summarize(r.Context(), attachmentID)
	if err != nil {
		switch err {
		case voice.ErrAIDisabled:
			writeError(w, http.StatusServiceUnavailable, "AI features are disabled")
		case voice.ErrTranscriptEmpty:
			writeError(w, http.StatusUnprocessableEntity, "Transcript is empty, nothing to summarize")
		default:
			logger.Error("摘要请求失败", logger.String("attachmentId", attachmentID), logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Summarization failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"attachmentId": attachmentID,
		"summary":      summary,
	})
}

// VoiceStatusHandler 返回附件的AI处理状态
func (h *APIHandler) VoiceStatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	attachmentID := mux.Vars(r)["id"]
	status := h.getCoordinator(userID).Status(r.Context(), attachmentID)
	writeJSON(w, http.StatusOK, status)
}

// GetTranscriptHandler 返回附件已保存的转写与摘要
func (h *APIHandler) GetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID := mux.Vars(r)["id"]

	vt, err := h.voiceRepo.GetByAttachmentID(r.Context(), attachmentID)
	if err != nil {
		logger.Error("查询转写记录失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to look up transcript")
		return
	}
	if vt == nil {
		writeError(w, http.StatusNotFound, "No transcript for attachment")
		return
	}

	writeJSON(w, http.StatusOK, vt)
}
