package player

import (
	"context"
	"math"
	"sync"
	"time"

	"NoteFM/cache"
	"NoteFM/logger"
	"NoteFM/model"
)

// Player 共享播放器
// 持有播放队列与当前播放状态，所有操作串行化。
// 播放位置按挂钟时间推算：暂停时记录累计偏移，播放时加上流逝时间。
type Player struct {
	mu sync.Mutex

	userID  int64
	queue   []model.QueueEntry
	current int // 当前曲目在队列中的下标，-1 表示无曲目

	playing   bool
	offset    float64   // 暂停时刻的播放位置（秒）
	startedAt time.Time // 最近一次开始播放的时刻

	// 播放端上报的兜底时长，按附件ID记录
	// 探测到的媒体时长无效时使用
	fallbackDurations map[string]float64

	now func() time.Time // 测试时可替换时钟
}

// Snapshot 播放器某一时刻的只读状态
type Snapshot struct {
	AttachmentID string  `json:"attachmentId"`
	DisplayName  string  `json:"displayName"`
	Position     float64 `json:"position"` // 秒
	Duration     float64 `json:"duration"` // 有效时长，秒
	Playing      bool    `json:"playing"`
	QueueLength  int     `json:"queueLength"`
	QueueIndex   int     `json:"queueIndex"`
}

// NewPlayer 创建共享播放器
func NewPlayer(userID int64) *Player {
	return &Player{
		userID:            userID,
		current:           -1,
		fallbackDurations: make(map[string]float64),
		now:               time.Now,
	}
}

// effectiveDuration 返回当前曲目的有效时长
// 优先使用探测到的媒体时长，无效时退回播放端上报的兜底值。
func (p *Player) effectiveDuration() float64 {
	if p.current < 0 || p.current >= len(p.queue) {
		return 0
	}
	entry := p.queue[p.current]
	if entry.Duration > 0 && !math.IsInf(entry.Duration, 0) && !math.IsNaN(entry.Duration) {
		return entry.Duration
	}
	if fb, ok := p.fallbackDurations[entry.AttachmentID]; ok && fb > 0 {
		return fb
	}
	return 0
}

// position 计算当前播放位置，调用方必须持有锁
func (p *Player) position() float64 {
	pos := p.offset
	if p.playing {
		pos += p.now().Sub(p.startedAt).Seconds()
	}
	if pos < 0 {
		pos = 0
	}
	if dur := p.effectiveDuration(); dur > 0 && pos > dur {
		pos = dur
	}
	return pos
}

// Toggle 处理附件行上的播放/暂停点击
// 点击的是当前曲目时切换播放状态；否则用可见音频列表整体重建队列，
// 点击的附件立即开播，其余按列表顺序排在队列中（不去重）。
func (p *Player) Toggle(ctx context.Context, selectedID string, visible []model.QueueEntry) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current >= 0 && p.current < len(p.queue) && p.queue[p.current].AttachmentID == selectedID {
		p.togglePlayPause()
		return p.snapshot()
	}

	// 重建队列：可见音频文件按列表顺序全部入队
	p.queue = make([]model.QueueEntry, len(visible))
	copy(p.queue, visible)

	p.current = -1
	for i, entry := range p.queue {
		if entry.AttachmentID == selectedID {
			p.current = i
			break
		}
	}
	if p.current < 0 {
		// 点击的附件不在可见列表中时追加到队尾
		logger.Warn("点击的附件不在可见列表中", logger.String("attachmentId", selectedID))
		p.queue = append(p.queue, model.QueueEntry{AttachmentID: selectedID})
		p.current = len(p.queue) - 1
	}

	p.offset = 0
	p.startedAt = p.now()
	p.playing = true

	p.mirrorQueue(ctx)
	return p.snapshot()
}

func (p *Player) togglePlayPause() {
	if p.playing {
		p.offset = p.position()
		p.playing = false
	} else {
		p.startedAt = p.now()
		p.playing = true
	}
}

// Play 恢复播放
func (p *Player) Play() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= 0 && !p.playing {
		p.startedAt = p.now()
		p.playing = true
	}
	return p.snapshot()
}

// Pause 暂停播放
func (p *Player) Pause() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		p.offset = p.position()
		p.playing = false
	}
	return p.snapshot()
}

// SeekFraction 处理进度条点击
// fraction 为点击位置占进度条宽度的比例，换算为有效时长上的绝对位置。
// 目标附件不是当前曲目、或有效时长无效时不做任何事。
func (p *Player) SeekFraction(attachmentID string, fraction float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < 0 || p.current >= len(p.queue) || p.queue[p.current].AttachmentID != attachmentID {
		return p.snapshot()
	}

	dur := p.effectiveDuration()
	if dur <= 0 || math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return p.snapshot()
	}

	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	p.offset = fraction * dur
	p.startedAt = p.now()
	return p.snapshot()
}

// SeekTo 跳转到绝对位置（秒），语义同 SeekFraction
func (p *Player) SeekTo(attachmentID string, seconds float64) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < 0 || p.current >= len(p.queue) || p.queue[p.current].AttachmentID != attachmentID {
		return p.snapshot()
	}

	dur := p.effectiveDuration()
	if dur <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return p.snapshot()
	}

	if seconds < 0 {
		seconds = 0
	}
	if seconds > dur {
		seconds = dur
	}

	p.offset = seconds
	p.startedAt = p.now()
	return p.snapshot()
}

// Next 切换到队列中的下一首
func (p *Player) Next(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current >= 0 && p.current < len(p.queue)-1 {
		p.current++
		p.offset = 0
		p.startedAt = p.now()
	} else {
		// 队列播完，停在末尾
		p.playing = false
		p.offset = p.effectiveDuration()
	}
	return p.snapshot()
}

// Prev 切换到队列中的上一首
func (p *Player) Prev(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current > 0 {
		p.current--
	}
	p.offset = 0
	p.startedAt = p.now()
	return p.snapshot()
}

// ReportDuration 记录播放端上报的兜底时长
func (p *Player) ReportDuration(attachmentID string, duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if duration > 0 && !math.IsInf(duration, 0) && !math.IsNaN(duration) {
		p.fallbackDurations[attachmentID] = duration
	}
}

// Queue 返回当前队列的拷贝
func (p *Player) Queue() []model.QueueEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.QueueEntry, len(p.queue))
	copy(out, p.queue)
	return out
}

// Snapshot 返回播放器当前状态
// 曲目自然播完时自动切到下一首。
func (p *Player) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.playing {
		if dur := p.effectiveDuration(); dur > 0 && p.position() >= dur {
			if p.current < len(p.queue)-1 {
				p.current++
				p.offset = 0
				p.startedAt = p.now()
			} else {
				p.playing = false
				p.offset = dur
			}
		}
	}

	return p.snapshot()
}

// snapshot 组装状态，调用方必须持有锁
func (p *Player) snapshot() Snapshot {
	s := Snapshot{
		Playing:     p.playing,
		QueueLength: len(p.queue),
		QueueIndex:  p.current,
	}
	if p.current >= 0 && p.current < len(p.queue) {
		entry := p.queue[p.current]
		s.AttachmentID = entry.AttachmentID
		s.DisplayName = entry.DisplayName
		s.Position = p.position()
		s.Duration = p.effectiveDuration()
	}
	return s
}

// mirrorQueue 将队列镜像到Redis，失败只记录日志
func (p *Player) mirrorQueue(ctx context.Context) {
	entries := make([]model.QueueEntry, len(p.queue))
	copy(entries, p.queue)
	if err := cache.ReplaceQueue(ctx, p.userID, entries); err != nil {
		logger.Warn("播放队列写入Redis失败", logger.Int64("userId", p.userID), logger.ErrorField(err))
	}
}
