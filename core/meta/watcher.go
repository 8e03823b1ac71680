package meta

import (
	"context"
	"os"
	"path/filepath"

	"NoteFM/logger"
	"NoteFM/model"

	"github.com/fsnotify/fsnotify"
)

// SpoolWatcher 监听附件暂存目录，编辑器落盘新音频文件时回调
type SpoolWatcher struct {
	dir     string
	watcher *fsnotify.Watcher
	onAudio func(path string)
}

// NewSpoolWatcher 创建暂存目录监听器
// onAudio 在检测到新音频文件时被调用，参数为文件完整路径。
func NewSpoolWatcher(dir string, onAudio func(path string)) (*SpoolWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &SpoolWatcher{
		dir:     dir,
		watcher: watcher,
		onAudio: onAudio,
	}, nil
}

// Run 启动监听循环，直到 ctx 取消
func (w *SpoolWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	processed := make(map[string]bool)

	logger.Info("附件暂存目录监听已启动", logger.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !model.IsAudioPath(event.Name) {
				continue
			}
			if processed[event.Name] {
				continue
			}
			processed[event.Name] = true

			logger.Info("检测到新音频附件", logger.String("path", filepath.Base(event.Name)))
			if w.onAudio != nil {
				w.onAudio(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("暂存目录监听错误", logger.ErrorField(err))
		}
	}
}
