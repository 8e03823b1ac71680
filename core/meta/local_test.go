package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractMetaFromPath(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		title string
	}{
		{
			name:  "完整的 歌手/专辑/曲目 结构",
			path:  "/spool/audio/周杰伦/叶惠美/03.晴天.mp3",
			title: "晴天",
		},
		{
			name:  "去掉点号分隔的音轨序号",
			path:  "01.Intro.flac",
			title: "Intro",
		},
		{
			name:  "去掉横线分隔的音轨序号",
			path:  "07 - Track Seven.mp3",
			title: "Track Seven",
		},
		{
			name:  "去掉空格分隔的音轨序号",
			path:  "12 晴天.mp3",
			title: "晴天",
		},
		{
			name:  "没有序号前缀时保留原名",
			path:  "recording.m4a",
			title: "recording",
		},
		{
			name:  "纯数字文件名不被当成序号",
			path:  "2024.mp3",
			title: "2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := ExtractMetaFromPath(tt.path)
			assert.Equal(t, tt.title, meta.Title)
			assert.Equal(t, "filename", meta.Source)
		})
	}
}

func TestExtractMetaFromPathDirectoryLayout(t *testing.T) {
	meta := ExtractMetaFromPath("/library/Queen/A Night at the Opera/09. Bohemian Rhapsody.mp3")

	assert.Equal(t, "Bohemian Rhapsody", meta.Title)
	assert.Equal(t, "Queen", meta.Artist)
	assert.Equal(t, "A Night at the Opera", meta.Album)
}

func TestExtractMetaFromPathShallowPath(t *testing.T) {
	meta := ExtractMetaFromPath("song.mp3")

	assert.Equal(t, "song", meta.Title)
	assert.Empty(t, meta.Artist)
	assert.Empty(t, meta.Album)
}

func TestExtractLocalMetaMissingFileFallsBack(t *testing.T) {
	meta := ExtractLocalMeta("/nonexistent/dir/02 - Demo.mp3")

	assert.Equal(t, "Demo", meta.Title)
	assert.Equal(t, "filename", meta.Source)
	assert.Equal(t, "nonexistent", meta.Artist)
	assert.Equal(t, "dir", meta.Album)
}
