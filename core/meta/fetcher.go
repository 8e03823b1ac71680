package meta

import (
	"context"
	"sync"

	"NoteFM/cache"
	"NoteFM/logger"
	"NoteFM/model"
	"NoteFM/storage"
)

// Fetcher 元数据抓取器
// 每个音频附件在进程生命周期内只触发一次抓取，结果写入Redis缓存。
// 抓取失败只记录日志，不重试；并发写入时后写覆盖先写。
type Fetcher struct {
	client *Client

	mu        sync.Mutex
	requested map[string]bool // 已触发过抓取的附件ID
}

// NewFetcher 创建元数据抓取器
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{
		client:    client,
		requested: make(map[string]bool),
	}
}

// EnsureMeta 确保附件的元数据已抓取
// 缓存命中直接返回；否则先查远端服务，失败时退回本地标签解析。
func (f *Fetcher) EnsureMeta(ctx context.Context, att *model.Attachment) *model.TrackMeta {
	if !att.IsAudio {
		return nil
	}

	// 缓存命中
	cached, err := cache.GetTrackMeta(ctx, att.ID)
	if err != nil {
		logger.Warn("读取元数据缓存失败", logger.String("attachmentId", att.ID), logger.ErrorField(err))
	}
	if cached != nil {
		return cached
	}

	// 每个附件只触发一次抓取，失败也不再重试
	f.mu.Lock()
	already := f.requested[att.ID]
	f.requested[att.ID] = true
	f.mu.Unlock()
	if already {
		return nil
	}

	meta := f.fetch(ctx, att)
	if meta == nil {
		return nil
	}

	// 后写覆盖先写
	if err := cache.SetTrackMeta(ctx, att.ID, meta); err != nil {
		logger.Warn("写入元数据缓存失败", logger.String("attachmentId", att.ID), logger.ErrorField(err))
	}

	return meta
}

func (f *Fetcher) fetch(ctx context.Context, att *model.Attachment) *model.TrackMeta {
	if f.client != nil {
		path := f.resolvePath(ctx, att)
		meta, err := f.client.Lookup(ctx, path)
		if err == nil {
			return meta
		}
		// 远端查询失败只记录日志，退回本地解析
		logger.Warn("远端元数据查询失败",
			logger.String("attachmentId", att.ID),
			logger.String("path", path),
			logger.ErrorField(err))
	}

	if att.FilePath != "" {
		return ExtractLocalMeta(att.FilePath)
	}
	return ExtractMetaFromPath(att.DisplayName)
}

// resolvePath 解析远端查询用的路径
// 对象存储中的附件用预签名链接，失败或本地附件退回文件路径。
func (f *Fetcher) resolvePath(ctx context.Context, att *model.Attachment) string {
	if att.ObjectKey != "" {
		url, err := storage.PresignStreamURL(ctx, att.ObjectKey)
		if err == nil {
			return url
		}
		logger.Warn("生成预签名链接失败",
			logger.String("attachmentId", att.ID),
			logger.ErrorField(err))
	}
	return att.FilePath
}
