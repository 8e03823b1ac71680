package repository

import (
	"context"

	"NoteFM/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoiceRepository 语音转写数据访问接口
type VoiceRepository interface {
	// 转写结果按附件ID唯一，重复写入时覆盖
	SaveTranscript(ctx context.Context, vt *model.VoiceTranscript) error
	GetByAttachmentID(ctx context.Context, attachmentID string) (*model.VoiceTranscript, error)
	UpdateSummary(ctx context.Context, attachmentID string, summary string) error
	DeleteByAttachmentID(ctx context.Context, attachmentID string) error
}

// gormVoiceRepository GORM 实现
type gormVoiceRepository struct {
	db *gorm.DB
}

// NewGormVoiceRepository 创建 GORM 语音转写仓库
func NewGormVoiceRepository(db *gorm.DB) VoiceRepository {
	return &gormVoiceRepository{db: db}
}

// SaveTranscript 保存转写结果，附件已有记录时更新
func (r *gormVoiceRepository) SaveTranscript(ctx context.Context, vt *model.VoiceTranscript) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "attachment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"transcript", "model", "updated_at"}),
	}).Create(vt).Error
}

// GetByAttachmentID 根据附件ID获取转写记录
func (r *gormVoiceRepository) GetByAttachmentID(ctx context.Context, attachmentID string) (*model.VoiceTranscript, error) {
	var vt model.VoiceTranscript
	err := r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		First(&vt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &vt, nil
}

// UpdateSummary 更新附件的摘要内容
func (r *gormVoiceRepository) UpdateSummary(ctx context.Context, attachmentID string, summary string) error {
	return r.db.WithContext(ctx).Model(&model.VoiceTranscript{}).
		Where("attachment_id = ?", attachmentID).
		Update("summary", summary).Error
}

// DeleteByAttachmentID 删除附件的转写记录
func (r *gormVoiceRepository) DeleteByAttachmentID(ctx context.Context, attachmentID string) error {
	return r.db.WithContext(ctx).
		Where("attachment_id = ?", attachmentID).
		Delete(&model.VoiceTranscript{}).Error
}
