package model

import "time"

// VoiceTranscript 语音附件的转写结果，按附件ID持久化
type VoiceTranscript struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AttachmentID string    `json:"attachmentId" gorm:"size:64;uniqueIndex"`
	UserID       int64     `json:"userId" gorm:"index"`
	Transcript   string    `json:"transcript" gorm:"type:text"`
	Summary      string    `json:"summary" gorm:"type:text"`
	Model        string    `json:"model" gorm:"size:64"` // 使用的转写模型
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName maps VoiceTranscript to its MySQL table.
func (VoiceTranscript) TableName() string {
	return "voice_transcripts"
}

// VoiceStatus reports the per-attachment AI processing flags.
type VoiceStatus struct {
	AttachmentID  string `json:"attachmentId"`
	Transcribing  bool   `json:"transcribing"`
	Summarizing   bool   `json:"summarizing"`
	HasTranscript bool   `json:"hasTranscript"`
}
