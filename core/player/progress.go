package player

import (
	"context"
	"fmt"
	"math"
	"time"

	"NoteFM/logger"
)

// Update 一次进度采样的推送载荷
type Update struct {
	AttachmentID string  `json:"attachmentId"`
	Position     float64 `json:"position"`
	Duration     float64 `json:"duration"`
	Percent      float64 `json:"percent"`
	PositionText string  `json:"positionText"`
	DurationText string  `json:"durationText"`
	Playing      bool    `json:"playing"`
}

// FormatTime 将秒数格式化为 分:秒 显示文本
// 非法输入（NaN、无穷大、负数）显示为 0:00，秒数向下取整。
func FormatTime(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "0:00"
	}
	total := int(math.Floor(seconds))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// Percent 计算播放进度百分比
// 时长非法或不为正时返回0，结果收敛到 [0, 100]。
func Percent(position, duration float64) float64 {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0
	}
	if math.IsNaN(position) || math.IsInf(position, 0) {
		return 0
	}
	pct := position / duration * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// MakeUpdate 由播放器快照生成进度推送载荷
func MakeUpdate(s Snapshot) Update {
	return Update{
		AttachmentID: s.AttachmentID,
		Position:     s.Position,
		Duration:     s.Duration,
		Percent:      Percent(s.Position, s.Duration),
		PositionText: FormatTime(s.Position),
		DurationText: FormatTime(s.Duration),
		Playing:      s.Playing,
	}
}

// Poller 进度采样器
// 按固定周期读取播放器状态并推送。每次采样先记下当前曲目ID，
// 推送前再次校验，曲目在采样期间切换时丢弃这次采样。
type Poller struct {
	player   *Player
	interval time.Duration
	publish  func(Update)
}

// NewPoller 创建进度采样器，publish 为推送回调
func NewPoller(p *Player, interval time.Duration, publish func(Update)) *Poller {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Poller{
		player:   p,
		interval: interval,
		publish:  publish,
	}
}

// Run 启动采样循环，直到 ctx 取消
func (pl *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(pl.interval)
	defer ticker.Stop()

	logger.Info("进度采样已启动", logger.Duration("interval", pl.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pl.tick()
		}
	}
}

// tick 采样一次，过期采样直接丢弃
func (pl *Poller) tick() {
	snap := pl.player.Snapshot()
	if snap.AttachmentID == "" {
		return
	}
	trackID := snap.AttachmentID

	update := MakeUpdate(snap)

	// 采样期间曲目已切换则丢弃
	if current := pl.player.Snapshot().AttachmentID; current != trackID {
		return
	}

	if pl.publish != nil {
		pl.publish(update)
	}
}
