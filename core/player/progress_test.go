package player

import (
	"context"
	"math"
	"testing"
	"time"

	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "0:00"},
		{"under a minute", 59, "0:59"},
		{"exact minute", 60, "1:00"},
		{"minutes and seconds", 125, "2:05"},
		{"floors fractional seconds", 61.9, "1:01"},
		{"long track", 3723, "62:03"},
		{"negative", -5, "0:00"},
		{"NaN", math.NaN(), "0:00"},
		{"positive infinity", math.Inf(1), "0:00"},
		{"negative infinity", math.Inf(-1), "0:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTime(tt.seconds))
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		position float64
		duration float64
		want     float64
	}{
		{"halfway", 50, 100, 50},
		{"start", 0, 100, 0},
		{"end", 100, 100, 100},
		{"zero duration", 10, 0, 0},
		{"negative duration", 10, -5, 0},
		{"NaN duration", 10, math.NaN(), 0},
		{"infinite duration", 10, math.Inf(1), 0},
		{"NaN position", math.NaN(), 100, 0},
		{"position past end clamps to 100", 150, 100, 100},
		{"negative position clamps to 0", -10, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percent(tt.position, tt.duration))
		})
	}
}

func TestMakeUpdate(t *testing.T) {
	snap := Snapshot{
		AttachmentID: "att-1",
		Position:     65,
		Duration:     130,
		Playing:      true,
	}

	u := MakeUpdate(snap)

	assert.Equal(t, "att-1", u.AttachmentID)
	assert.Equal(t, 50.0, u.Percent)
	assert.Equal(t, "1:05", u.PositionText)
	assert.Equal(t, "2:10", u.DurationText)
	assert.True(t, u.Playing)
}

func TestMakeUpdateUnknownDuration(t *testing.T) {
	u := MakeUpdate(Snapshot{AttachmentID: "att-1", Position: 10, Duration: 0})

	assert.Equal(t, 0.0, u.Percent)
	assert.Equal(t, "0:10", u.PositionText)
	assert.Equal(t, "0:00", u.DurationText)
}

func TestPollerTickPublishesCurrentTrack(t *testing.T) {
	p := NewPlayer(1)
	now := time.Unix(1700000000, 0)
	p.now = func() time.Time { return now }

	p.Toggle(context.Background(), "a", []model.QueueEntry{
		{AttachmentID: "a", Duration: 120},
	})

	var published []Update
	poller := NewPoller(p, time.Millisecond, func(u Update) {
		published = append(published, u)
	})

	poller.tick()

	require.Len(t, published, 1)
	assert.Equal(t, "a", published[0].AttachmentID)
	assert.True(t, published[0].Playing)
}

func TestPollerTickSkipsEmptyPlayer(t *testing.T) {
	p := NewPlayer(1)

	published := 0
	poller := NewPoller(p, time.Millisecond, func(Update) { published++ })

	poller.tick()

	assert.Zero(t, published)
}

func TestPollerDropsTickWhenTrackChangesMidSample(t *testing.T) {
	p := NewPlayer(1)

	// 时钟每读一次前进4秒：采样开始时曲目a还没播完，
	// 采样结束前的复核时刻a已自然切换到b
	base := time.Unix(1700000000, 0)
	calls := 0
	p.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 4 * time.Second)
	}

	p.Toggle(context.Background(), "a", []model.QueueEntry{
		{AttachmentID: "a", Duration: 10},
		{AttachmentID: "b", Duration: 10},
	})

	published := 0
	poller := NewPoller(p, time.Millisecond, func(Update) { published++ })

	poller.tick()

	// 被切换的采样必须丢弃，不能以a的身份推送
	assert.Zero(t, published)
	assert.Equal(t, "b", p.Snapshot().AttachmentID)

	// 下一次采样以新曲目的身份正常推送
	var last Update
	poller.publish = func(u Update) {
		published++
		last = u
	}
	poller.tick()
	require.Equal(t, 1, published)
	assert.Equal(t, "b", last.AttachmentID)
}
