package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Audio file extensions recognized by the attachment browser.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
}

// IsAudioPath reports whether the file name carries a known audio extension.
func IsAudioPath(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// Attachment represents a file attached to a note.
// Attachments keep a stable UUID so renames do not break playback or cache state.
type Attachment struct {
	ID          string    `json:"id"` // 稳定UUID，重命名后保持不变
	UserID      int64     `json:"userId"`
	NoteID      int64     `json:"noteId"`
	DisplayName string    `json:"displayName"` // 编辑器中展示的文件名
	FilePath    string    `json:"-"`           // Path in the local spool, not exposed in API directly
	ObjectKey   string    `json:"-"`           // MinIO object key once uploaded
	MimeType    string    `json:"mimeType"`
	Size        int64     `json:"size"`
	IsAudio     bool      `json:"isAudio"`
	Duration    float64   `json:"duration"` // Probed duration in seconds, 0 when unknown
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TrackMeta 音乐元数据，来自远端查询或本地标签解析
type TrackMeta struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	CoverURL string  `json:"coverUrl"`
	Duration float64 `json:"duration"` // 秒，可能为0表示未知
	Source   string  `json:"source"`   // "remote"、"tag" 或 "filename"
}

// QueueEntry is one entry in the shared playback queue.
type QueueEntry struct {
	AttachmentID string  `json:"attachmentId"`
	DisplayName  string  `json:"displayName"`
	StreamURL    string  `json:"streamUrl"`
	Duration     float64 `json:"duration"`
}
