package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"NoteFM/cache"
	"NoteFM/logger"
	"NoteFM/model"
	"NoteFM/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// UploadAttachmentHandler 接收编辑器上传的附件
// 文件先落盘到暂存目录，音频附件随后异步上传到对象存储。
func (h *APIHandler) UploadAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	// 先解析再取表单字段，否则 FormValue 会按默认阈值触发解析
	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB
		writeError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	noteID, err := strconv.ParseInt(r.FormValue("noteId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// 附件获得稳定UUID，之后重命名不影响播放和缓存
	attachmentID := uuid.NewString()
	destPath := filepath.Join(h.cfg.AttachmentDir, attachmentID+filepath.Ext(header.Filename))

	if err := saveUploadedFile(file, destPath); err != nil {
		logger.Error("保存附件文件失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to save file")
		return
	}

	mimeType := mime.TypeByExtension(filepath.Ext(header.Filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	att := &model.Attachment{
		ID:          attachmentID,
		UserID:      userID,
		NoteID:      noteID,
		DisplayName: header.Filename,
		FilePath:    destPath,
		MimeType:    mimeType,
		Size:        header.Size,
		IsAudio:     model.IsAudioPath(header.Filename),
	}

	if err := h.attRepo.CreateAttachment(att); err != nil {
		logger.Error("创建附件记录失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create attachment")
		return
	}

	// 音频附件异步上传到对象存储
	if att.IsAudio {
		go h.uploadToObjectStorage(att)
	}

	logger.Info("附件上传成功",
		logger.String("attachmentId", attachmentID),
		logger.String("name", att.DisplayName),
		logger.Bool("isAudio", att.IsAudio))

	writeJSON(w, http.StatusOK, att)
}

func (h *APIHandler) uploadToObjectStorage(att *model.Attachment) {
	ctx, cancel := context.WithTimeout(h.baseCtx, 5*time.Minute)
	defer cancel()

	objectKey, err := storage.UploadAttachment(ctx, att.ID, att.FilePath)
	if err != nil {
		logger.Error("附件上传对象存储失败",
			logger.String("attachmentId", att.ID),
			logger.ErrorField(err))
		return
	}

	if err := h.attRepo.UpdateObjectKey(att.ID, objectKey); err != nil {
		logger.Error("记录对象键失败",
			logger.String("attachmentId", att.ID),
			logger.ErrorField(err))
	}
}

func saveUploadedFile(src io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return err
	}
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// ListAttachmentsHandler 渲染某篇笔记的附件浏览器视图
func (h *APIHandler) ListAttachmentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	noteID, err := strconv.ParseInt(r.URL.Query().Get("noteId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	b := h.getBrowser(userID, noteID)
	view, err := b.List(r.Context())
	if err != nil {
		logger.Error("渲染附件列表失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list attachments")
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ToggleExpandHandler 在「显示更多 / 收起」之间切换
func (h *APIHandler) ToggleExpandHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	noteID, err := strconv.ParseInt(mux.Vars(r)["note_id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}

	expanded := h.getBrowser(userID, noteID).ToggleExpand()
	writeJSON(w, http.StatusOK, map[string]bool{"expanded": expanded})
}

// RenameAttachmentHandler 重命名附件，UUID保持稳定
func (h *APIHandler) RenameAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID := mux.Vars(r)["id"]

	var req struct {
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "displayName is required")
		return
	}

	att, err := h.attRepo.GetAttachmentByID(attachmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up attachment")
		return
	}
	if att == nil {
		writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}

	if err := h.attRepo.UpdateDisplayName(attachmentID, req.DisplayName); err != nil {
		logger.Error("重命名附件失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to rename attachment")
		return
	}

	logger.Info("附件已重命名",
		logger.String("attachmentId", attachmentID),
		logger.String("from", att.DisplayName),
		logger.String("to", req.DisplayName))

	writeJSON(w, http.StatusOK, map[string]string{"id": attachmentID, "displayName": req.DisplayName})
}

// DeleteAttachmentHandler 删除附件及其派生数据
func (h *APIHandler) DeleteAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID := mux.Vars(r)["id"]

	att, err := h.attRepo.GetAttachmentByID(attachmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up attachment")
		return
	}
	if att == nil {
		writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}

	if err := h.attRepo.DeleteAttachment(attachmentID); err != nil {
		logger.Error("删除附件记录失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to delete attachment")
		return
	}

	// 派生数据清理失败只记录日志
	ctx := r.Context()
	if err := cache.DeleteTrackMeta(ctx, attachmentID); err != nil {
		logger.Warn("清理元数据缓存失败", logger.ErrorField(err))
	}
	if err := h.voiceRepo.DeleteByAttachmentID(ctx, attachmentID); err != nil {
		logger.Warn("清理转写记录失败", logger.ErrorField(err))
	}
	if att.ObjectKey != "" {
		if err := storage.RemoveAttachment(ctx, att.ObjectKey); err != nil {
			logger.Warn("清理对象存储失败", logger.ErrorField(err))
		}
	}
	if att.FilePath != "" {
		if err := os.Remove(att.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("清理本地文件失败", logger.ErrorField(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": attachmentID})
}

// StreamAttachmentHandler 直接以本地文件提供附件音频
// 未上传到对象存储的附件走这里，支持Range请求。
func (h *APIHandler) StreamAttachmentHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID := mux.Vars(r)["id"]

	att, err := h.attRepo.GetAttachmentByID(attachmentID)
	if err != nil || att == nil {
		writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}

	if att.FilePath == "" {
		writeError(w, http.StatusNotFound, "No local file for attachment")
		return
	}

	w.Header().Set("Content-Type", att.MimeType)
	http.ServeFile(w, r, att.FilePath)
}

// GetAttachmentMetaHandler 返回附件的音乐元数据
func (h *APIHandler) GetAttachmentMetaHandler(w http.ResponseWriter, r *http.Request) {
	attachmentID := mux.Vars(r)["id"]

	att, err := h.attRepo.GetAttachmentByID(attachmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up attachment")
		return
	}
	if att == nil {
		writeError(w, http.StatusNotFound, "Attachment not found")
		return
	}
	if !att.IsAudio {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("attachment %s is not audio", attachmentID))
		return
	}

	m := h.fetcher.EnsureMeta(r.Context(), att)
	if m == nil {
		// 抓取尚未完成或失败，前端展示文件名即可
		writeJSON(w, http.StatusOK, map[string]interface{}{"meta": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"meta": m})
}
