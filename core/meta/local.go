package meta

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"NoteFM/logger"
	"NoteFM/model"

	"github.com/dhowden/tag"
)

var trackPrefixRe = regexp.MustCompile(`^(\d+)[\.\-\s]+(.+)`)

// ExtractLocalMeta 从音频文件内嵌标签解析元数据，失败时退回文件名解析
func ExtractLocalMeta(filePath string) *model.TrackMeta {
	file, err := os.Open(filePath)
	if err != nil {
		logger.Warn("无法打开音频文件，使用文件名解析元数据",
			logger.String("path", filePath), logger.ErrorField(err))
		return ExtractMetaFromPath(filePath)
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		logger.Warn("无法解析音频标签，使用文件名解析元数据",
			logger.String("path", filePath), logger.ErrorField(err))
		return ExtractMetaFromPath(filePath)
	}

	meta := &model.TrackMeta{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Source: "tag",
	}

	// 标签缺失的字段用文件名解析结果补齐
	if meta.Title == "" || meta.Artist == "" || meta.Album == "" {
		fallback := ExtractMetaFromPath(filePath)
		if meta.Title == "" {
			meta.Title = fallback.Title
		}
		if meta.Artist == "" {
			meta.Artist = fallback.Artist
		}
		if meta.Album == "" {
			meta.Album = fallback.Album
		}
	}

	return meta
}

// ExtractMetaFromPath 从文件路径推断元数据
// 目录结构约定为 Artist/Album/Track.ext，文件名去掉音轨序号前缀
func ExtractMetaFromPath(filePath string) *model.TrackMeta {
	meta := &model.TrackMeta{Source: "filename"}

	parts := strings.Split(filepath.ToSlash(filePath), "/")
	filename := filepath.Base(filePath)

	if len(parts) >= 3 {
		meta.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		meta.Album = parts[len(parts)-2]
	}

	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if matches := trackPrefixRe.FindStringSubmatch(title); len(matches) > 2 {
		title = matches[2]
	}
	meta.Title = title

	return meta
}
