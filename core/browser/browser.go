package browser

import (
	"context"
	"fmt"
	"sync"

	"NoteFM/core/meta"
	"NoteFM/core/player"
	"NoteFM/logger"
	"NoteFM/model"
	"NoteFM/repository"
)

// StreamURLResolver 把附件解析为可播放的链接
type StreamURLResolver func(ctx context.Context, att *model.Attachment) (string, error)

// Row 附件列表中的一行
type Row struct {
	Attachment *model.Attachment `json:"attachment"`
	Meta       *model.TrackMeta  `json:"meta,omitempty"`
	IsCurrent  bool              `json:"isCurrent"`
	Playing    bool              `json:"playing"`
}

// View 附件浏览器的一次渲染结果
type View struct {
	Rows     []Row `json:"rows"`     // 当前可见的附件行
	Total    int   `json:"total"`    // 附件总数
	Audio    int   `json:"audio"`    // 音频附件数
	Expanded bool  `json:"expanded"` // 是否展开了全部附件
	HasMore  bool  `json:"hasMore"`  // 折叠状态下是否还有更多
}

// Browser 单篇笔记的附件浏览器
// 维护折叠状态，把可见音频列表喂给共享播放器。
type Browser struct {
	noteID  int64
	attRepo repository.AttachmentRepository
	fetcher *meta.Fetcher
	player  *player.Player
	resolve StreamURLResolver

	visibleLimit int

	mu       sync.Mutex
	expanded bool
}

// New 创建附件浏览器
func New(noteID int64, attRepo repository.AttachmentRepository, fetcher *meta.Fetcher,
	p *player.Player, resolve StreamURLResolver, visibleLimit int) *Browser {
	if visibleLimit <= 0 {
		visibleLimit = 3
	}
	return &Browser{
		noteID:       noteID,
		attRepo:      attRepo,
		fetcher:      fetcher,
		player:       p,
		resolve:      resolve,
		visibleLimit: visibleLimit,
	}
}

// ToggleExpand 在「显示更多 / 收起」之间切换，返回切换后的状态
func (b *Browser) ToggleExpand() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expanded = !b.expanded
	return b.expanded
}

// Expanded 返回当前折叠状态
func (b *Browser) Expanded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expanded
}

// visibleSlice 按折叠状态裁剪附件列表
func (b *Browser) visibleSlice(all []*model.Attachment) []*model.Attachment {
	b.mu.Lock()
	expanded := b.expanded
	b.mu.Unlock()

	if expanded || len(all) <= b.visibleLimit {
		return all
	}
	return all[:b.visibleLimit]
}

// List 渲染附件列表
// 每个可见音频附件懒加载元数据，播放器当前曲目标记为激活。
func (b *Browser) List(ctx context.Context) (*View, error) {
	all, err := b.attRepo.GetAttachmentsByNoteID(b.noteID)
	if err != nil {
		return nil, fmt.Errorf("查询附件列表失败: %w", err)
	}

	audioCount := 0
	for _, att := range all {
		if att.IsAudio {
			audioCount++
		}
	}

	visible := b.visibleSlice(all)
	snap := b.player.Snapshot()

	rows := make([]Row, 0, len(visible))
	for _, att := range visible {
		row := Row{Attachment: att}
		if att.IsAudio {
			row.Meta = b.fetcher.EnsureMeta(ctx, att)
			if snap.AttachmentID == att.ID {
				row.IsCurrent = true
				row.Playing = snap.Playing
			}
		}
		rows = append(rows, row)
	}

	b.mu.Lock()
	expanded := b.expanded
	b.mu.Unlock()

	return &View{
		Rows:     rows,
		Total:    len(all),
		Audio:    audioCount,
		Expanded: expanded,
		HasMore:  !expanded && len(all) > b.visibleLimit,
	}, nil
}

// visibleAudioEntries 把可见的音频附件转成队列条目，顺序与列表一致
func (b *Browser) visibleAudioEntries(ctx context.Context) ([]model.QueueEntry, error) {
	all, err := b.attRepo.GetAttachmentsByNoteID(b.noteID)
	if err != nil {
		return nil, fmt.Errorf("查询附件列表失败: %w", err)
	}

	visible := b.visibleSlice(all)

	entries := make([]model.QueueEntry, 0, len(visible))
	for _, att := range visible {
		if !att.IsAudio {
			continue
		}
		entry := model.QueueEntry{
			AttachmentID: att.ID,
			DisplayName:  att.DisplayName,
			Duration:     att.Duration,
		}
		if b.resolve != nil {
			url, err := b.resolve(ctx, att)
			if err != nil {
				// 解析播放链接失败不阻塞整个队列
				logger.Warn("解析播放链接失败",
					logger.String("attachmentId", att.ID),
					logger.ErrorField(err))
			} else {
				entry.StreamURL = url
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// TogglePlay 处理附件行上的播放按钮
// 点击当前曲目时在播放与暂停间切换，否则用可见音频列表重建队列。
func (b *Browser) TogglePlay(ctx context.Context, selectedID string) (player.Snapshot, error) {
	entries, err := b.visibleAudioEntries(ctx)
	if err != nil {
		return player.Snapshot{}, err
	}
	return b.player.Toggle(ctx, selectedID, entries), nil
}

// Seek 处理进度条点击，fraction 为点击位置比例
func (b *Browser) Seek(attachmentID string, fraction float64) player.Snapshot {
	return b.player.SeekFraction(attachmentID, fraction)
}
