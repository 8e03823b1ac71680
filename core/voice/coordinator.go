package voice

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"NoteFM/logger"
	"NoteFM/model"
	"NoteFM/repository"
)

// Notifier 用户提示通道，静默操作不会触发提示
type Notifier interface {
	Notify(level, message string)
}

// EditorBus 编辑器事件总线，Emit 为即发即忘
type EditorBus interface {
	Emit(event string, payload interface{})
}

// ErrAIDisabled AI功能未开启
var ErrAIDisabled = fmt.Errorf("AI功能未开启")

// ErrTranscriptEmpty 转写结果为空，无法继续摘要
var ErrTranscriptEmpty = fmt.Errorf("转写内容为空")

// attachmentFlags 单个附件的处理状态
type attachmentFlags struct {
	transcribing bool
	summarizing  bool
}

// Coordinator 语音AI协调器
// 串联转写与摘要：摘要优先复用已保存的转写结果，缺失时
// 自动补一次静默转写。各附件的处理状态互不影响。
type Coordinator struct {
	enabled  bool
	client   AIClient
	repo     repository.VoiceRepository
	attRepo  repository.AttachmentRepository
	notifier Notifier
	bus      EditorBus

	mu    sync.Mutex
	flags map[string]*attachmentFlags
}

// NewCoordinator 创建语音AI协调器
func NewCoordinator(enabled bool, client AIClient, repo repository.VoiceRepository,
	attRepo repository.AttachmentRepository, notifier Notifier, bus EditorBus) *Coordinator {
	return &Coordinator{
		enabled:  enabled,
		client:   client,
		repo:     repo,
		attRepo:  attRepo,
		notifier: notifier,
		bus:      bus,
		flags:    make(map[string]*attachmentFlags),
	}
}

// Status 返回附件当前的AI处理状态
func (c *Coordinator) Status(ctx context.Context, attachmentID string) model.VoiceStatus {
	c.mu.Lock()
	f := c.flags[attachmentID]
	status := model.VoiceStatus{AttachmentID: attachmentID}
	if f != nil {
		status.Transcribing = f.transcribing
		status.Summarizing = f.summarizing
	}
	c.mu.Unlock()

	if vt, err := c.repo.GetByAttachmentID(ctx, attachmentID); err == nil && vt != nil {
		status.HasTranscript = strings.TrimSpace(vt.Transcript) != ""
	}
	return status
}

func (c *Coordinator) setTranscribing(attachmentID string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.flags[attachmentID]
	if f == nil {
		f = &attachmentFlags{}
		c.flags[attachmentID] = f
	}
	f.transcribing = v
}

func (c *Coordinator) setSummarizing(attachmentID string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.flags[attachmentID]
	if f == nil {
		f = &attachmentFlags{}
		c.flags[attachmentID] = f
	}
	f.summarizing = v
}

func (c *Coordinator) notify(silent bool, level, message string) {
	if silent || c.notifier == nil {
		return
	}
	c.notifier.Notify(level, message)
}

// Transcribe 转写音频附件并保存结果
func (c *Coordinator) Transcribe(ctx context.Context, attachmentID string) (string, error) {
	return c.transcribe(ctx, attachmentID, false)
}

// transcribe 执行一次转写，silent 控制是否向用户提示
func (c *Coordinator) transcribe(ctx context.Context, attachmentID string, silent bool) (string, error) {
	if !c.enabled {
		c.notify(silent, "warn", "AI功能未开启，无法转写")
		return "", ErrAIDisabled
	}

	att, err := c.attRepo.GetAttachmentByID(attachmentID)
	if err != nil {
		return "", fmt.Errorf("查询附件失败: %w", err)
	}
	if att == nil {
		return "", fmt.Errorf("附件不存在: %s", attachmentID)
	}

	c.setTranscribing(attachmentID, true)
	defer c.setTranscribing(attachmentID, false)

	text, err := c.client.Transcribe(ctx, att.FilePath)
	if err != nil {
		logger.Error("转写失败",
			logger.String("attachmentId", attachmentID),
			logger.ErrorField(err))
		c.notify(silent, "error", "语音转写失败")
		return "", err
	}

	vt := &model.VoiceTranscript{
		AttachmentID: attachmentID,
		UserID:       att.UserID,
		Transcript:   text,
	}
	if err := c.repo.SaveTranscript(ctx, vt); err != nil {
		logger.Error("保存转写结果失败",
			logger.String("attachmentId", attachmentID),
			logger.ErrorField(err))
		c.notify(silent, "error", "保存转写结果失败")
		return "", err
	}

	c.notify(silent, "info", "语音转写完成")
	return text, nil
}

// Summarize 生成音频附件的摘要并插入编辑器
// 已有转写结果时直接复用；否则先静默补一次转写。
// 转写内容为空时中止，不调用摘要接口。
func (c *Coordinator) Summarize(ctx context.Context, attachmentID string) (string, error) {
	if !c.enabled {
		c.notify(false, "warn", "AI功能未开启，无法生成摘要")
		return "", ErrAIDisabled
	}

	c.setSummarizing(attachmentID, true)
	defer c.setSummarizing(attachmentID, false)

	transcript, err := c.ensureTranscript(ctx, attachmentID)
	if err != nil {
		// 内部静默转写不提示，失败要在这里告知用户
		c.notify(false, "error", "获取转写内容失败，无法生成摘要")
		return "", err
	}

	if strings.TrimSpace(transcript) == "" {
		c.notify(false, "warn", "转写内容为空，无法生成摘要")
		return "", ErrTranscriptEmpty
	}

	summary, err := c.client.Summarize(ctx, transcript)
	if err != nil {
		logger.Error("摘要生成失败",
			logger.String("attachmentId", attachmentID),
			logger.ErrorField(err))
		c.notify(false, "error", "摘要生成失败")
		return "", err
	}

	if err := c.repo.UpdateSummary(ctx, attachmentID, summary); err != nil {
		logger.Error("保存摘要失败",
			logger.String("attachmentId", attachmentID),
			logger.ErrorField(err))
	}

	if c.bus != nil {
		c.bus.Emit("editor:insert", summary)
	}

	c.notify(false, "info", "摘要已插入笔记")
	return summary, nil
}

// ensureTranscript 取出已保存的转写结果，缺失时静默转写一次
func (c *Coordinator) ensureTranscript(ctx context.Context, attachmentID string) (string, error) {
	vt, err := c.repo.GetByAttachmentID(ctx, attachmentID)
	if err != nil {
		return "", fmt.Errorf("查询转写记录失败: %w", err)
	}
	if vt != nil && strings.TrimSpace(vt.Transcript) != "" {
		return vt.Transcript, nil
	}

	return c.transcribe(ctx, attachmentID, true)
}
