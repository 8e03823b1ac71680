package player

import (
	"context"
	"testing"
	"time"

	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer(t *testing.T) (*Player, *time.Time) {
	t.Helper()
	p := NewPlayer(1)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }
	return p, &now
}

func entries(ids ...string) []model.QueueEntry {
	out := make([]model.QueueEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.QueueEntry{AttachmentID: id, DisplayName: id + ".mp3", Duration: 120})
	}
	return out
}

func TestToggleRebuildsQueueInOrder(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()

	snap := p.Toggle(ctx, "b", entries("a", "b", "c"))

	assert.Equal(t, "b", snap.AttachmentID)
	assert.True(t, snap.Playing)
	assert.Equal(t, 3, snap.QueueLength)
	assert.Equal(t, 1, snap.QueueIndex)

	queue := p.Queue()
	require.Len(t, queue, 3)
	assert.Equal(t, "a", queue[0].AttachmentID)
	assert.Equal(t, "b", queue[1].AttachmentID)
	assert.Equal(t, "c", queue[2].AttachmentID)
}

func TestToggleKeepsDuplicates(t *testing.T) {
	p, _ := newTestPlayer(t)

	snap := p.Toggle(context.Background(), "a", entries("a", "a", "b"))

	assert.Equal(t, 3, snap.QueueLength)
	assert.Equal(t, 0, snap.QueueIndex)
}

func TestToggleOnCurrentTrackPausesAndResumes(t *testing.T) {
	p, now := newTestPlayer(t)
	ctx := context.Background()

	p.Toggle(ctx, "a", entries("a", "b"))
	*now = now.Add(10 * time.Second)

	snap := p.Toggle(ctx, "a", entries("a", "b"))
	assert.False(t, snap.Playing)
	assert.InDelta(t, 10, snap.Position, 0.001)

	// 暂停期间位置不再前进
	*now = now.Add(5 * time.Second)
	assert.InDelta(t, 10, p.Snapshot().Position, 0.001)

	snap = p.Toggle(ctx, "a", entries("a", "b"))
	assert.True(t, snap.Playing)
	*now = now.Add(2 * time.Second)
	assert.InDelta(t, 12, p.Snapshot().Position, 0.001)
}

func TestToggleSwitchingTrackResetsPosition(t *testing.T) {
	p, now := newTestPlayer(t)
	ctx := context.Background()

	p.Toggle(ctx, "a", entries("a", "b"))
	*now = now.Add(30 * time.Second)

	snap := p.Toggle(ctx, "b", entries("a", "b"))
	assert.Equal(t, "b", snap.AttachmentID)
	assert.True(t, snap.Playing)
	assert.InDelta(t, 0, snap.Position, 0.001)
}

func TestSeekFraction(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a"))

	snap := p.SeekFraction("a", 0.5)
	assert.InDelta(t, 60, snap.Position, 0.001)

	// 比例越界收敛到合法范围
	snap = p.SeekFraction("a", 1.5)
	assert.InDelta(t, 120, snap.Position, 0.001)
	snap = p.SeekFraction("a", -0.2)
	assert.InDelta(t, 0, snap.Position, 0.001)
}

func TestSeekIgnoresNonCurrentTrack(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a", "b"))
	p.SeekFraction("a", 0.25)

	snap := p.SeekFraction("b", 0.9)
	assert.Equal(t, "a", snap.AttachmentID)
	assert.InDelta(t, 30, snap.Position, 0.001)
}

func TestSeekIgnoredWithoutValidDuration(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", []model.QueueEntry{{AttachmentID: "a"}})

	snap := p.SeekFraction("a", 0.5)
	assert.InDelta(t, 0, snap.Position, 0.001)
}

func TestFallbackDurationUsedWhenProbeMissing(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", []model.QueueEntry{{AttachmentID: "a"}})

	p.ReportDuration("a", 90)

	snap := p.SeekFraction("a", 0.5)
	assert.InDelta(t, 45, snap.Position, 0.001)
	assert.InDelta(t, 90, snap.Duration, 0.001)
}

func TestProbedDurationPreferredOverFallback(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a"))
	p.ReportDuration("a", 999)

	assert.InDelta(t, 120, p.Snapshot().Duration, 0.001)
}

func TestDragSeekRepeatedCalls(t *testing.T) {
	p, _ := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a"))

	// 拖拽时前端连续发送未节流的定位请求，最后一次生效
	for _, f := range []float64{0.1, 0.2, 0.3, 0.4, 0.42} {
		p.SeekFraction("a", f)
	}
	assert.InDelta(t, 0.42*120, p.Snapshot().Position, 0.001)
}

func TestSnapshotAdvancesToNextTrackAtEnd(t *testing.T) {
	p, now := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a", "b"))

	*now = now.Add(121 * time.Second)

	snap := p.Snapshot()
	assert.Equal(t, "b", snap.AttachmentID)
	assert.True(t, snap.Playing)
	assert.InDelta(t, 0, snap.Position, 0.001)
}

func TestSnapshotStopsAtQueueEnd(t *testing.T) {
	p, now := newTestPlayer(t)
	p.Toggle(context.Background(), "a", entries("a"))

	*now = now.Add(300 * time.Second)

	snap := p.Snapshot()
	assert.Equal(t, "a", snap.AttachmentID)
	assert.False(t, snap.Playing)
	assert.InDelta(t, 120, snap.Position, 0.001)
}

func TestNextPrev(t *testing.T) {
	p, _ := newTestPlayer(t)
	ctx := context.Background()
	p.Toggle(ctx, "a", entries("a", "b", "c"))

	snap := p.Next(ctx)
	assert.Equal(t, "b", snap.AttachmentID)

	snap = p.Prev(ctx)
	assert.Equal(t, "a", snap.AttachmentID)

	// 已在队首，再上一首只回到曲目开头
	snap = p.Prev(ctx)
	assert.Equal(t, "a", snap.AttachmentID)
	assert.InDelta(t, 0, snap.Position, 0.001)
}

func TestEmptyPlayerSnapshot(t *testing.T) {
	p, _ := newTestPlayer(t)

	snap := p.Snapshot()
	assert.Empty(t, snap.AttachmentID)
	assert.False(t, snap.Playing)
	assert.Equal(t, 0, snap.QueueLength)
}
