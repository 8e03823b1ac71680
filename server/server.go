package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NoteFM/cache"
	"NoteFM/config"
	"NoteFM/core/bus"
	"NoteFM/core/meta"
	"NoteFM/core/voice"
	"NoteFM/db"
	"NoteFM/logger"
	"NoteFM/model"
	"NoteFM/repository"
	"NoteFM/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(os.Getenv("LOG_LEVEL")),
		OutputPath: os.Getenv("LOG_FILE"),
		MaxSize:    100, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})

	// 设置服务器超时
	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	// GORM 连接用于语音转写模块
	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect database with GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.VoiceTranscript{}); err != nil {
		logger.Fatal("Failed to migrate voice models", logger.ErrorField(err))
	}

	// Connect to Redis
	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()
	logger.Info("Successfully connected to Redis")

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 仓库与核心服务
	userRepo := repository.NewMySQLUserRepository(db.DB)
	attRepo := repository.NewMySQLAttachmentRepository(db.DB)
	voiceRepo := repository.NewGormVoiceRepository(db.GormDB)

	metaClient := meta.NewClient(cfg.MetadataAPIURL)
	fetcher := meta.NewFetcher(metaClient)
	aiClient := voice.NewOpenAIClient(cfg)

	hub := bus.NewEditorHub()
	go hub.Run()
	defer hub.Stop()

	apiHandler := NewAPIHandler(baseCtx, cfg, userRepo, attRepo, voiceRepo, fetcher, hub, aiClient)

	// 监听暂存目录，编辑器直接落盘的音频文件自动补全时长和元数据
	watcher, err := meta.NewSpoolWatcher(cfg.AttachmentDir, func(path string) {
		att, err := attRepo.GetAttachmentByFilePath(path)
		if err != nil {
			logger.Warn("暂存文件查找附件失败", logger.String("path", path), logger.ErrorField(err))
			return
		}
		if att == nil {
			// 附件记录尚未写入，等编辑器调用上传接口
			return
		}
		fetcher.EnsureMeta(baseCtx, att)
	})
	if err != nil {
		logger.Fatal("Failed to start spool watcher", logger.ErrorField(err))
	}
	go watcher.Run(baseCtx)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)

	// 附件浏览器相关的API端点
	router.HandleFunc("/api/attachments", apiHandler.AuthMiddleware(apiHandler.ListAttachmentsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/attachments", apiHandler.AuthMiddleware(apiHandler.UploadAttachmentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/attachments/{id}", apiHandler.AuthMiddleware(apiHandler.RenameAttachmentHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/attachments/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteAttachmentHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/attachments/{id}/meta", apiHandler.AuthMiddleware(apiHandler.GetAttachmentMetaHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/attachments/{id}/stream", apiHandler.StreamAttachmentHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/notes/{note_id}/expand", apiHandler.AuthMiddleware(apiHandler.ToggleExpandHandler)).Methods(http.MethodPost)

	// 播放器相关的API端点
	router.HandleFunc("/api/player/toggle", apiHandler.AuthMiddleware(apiHandler.TogglePlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.AuthMiddleware(apiHandler.SeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/play", apiHandler.AuthMiddleware(apiHandler.PlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/pause", apiHandler.AuthMiddleware(apiHandler.PauseHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/prev", apiHandler.AuthMiddleware(apiHandler.PrevHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/state", apiHandler.AuthMiddleware(apiHandler.PlayerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/queue", apiHandler.AuthMiddleware(apiHandler.QueueHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/duration", apiHandler.AuthMiddleware(apiHandler.ReportDurationHandler)).Methods(http.MethodPost)

	// 语音AI相关的API端点
	router.HandleFunc("/api/voice/{id}/transcribe", apiHandler.AuthMiddleware(apiHandler.TranscribeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/voice/{id}/summarize", apiHandler.AuthMiddleware(apiHandler.SummarizeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/voice/{id}/status", apiHandler.AuthMiddleware(apiHandler.VoiceStatusHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/voice/{id}", apiHandler.AuthMiddleware(apiHandler.GetTranscriptHandler)).Methods(http.MethodGet)

	// 编辑器 WebSocket（进度推送、通知、编辑器插入事件）
	router.HandleFunc("/ws/editor", apiHandler.EditorWSHandler)

	httpServer.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// 等待中断信号
	<-stop
	logger.Info("Shutting down server...")
	cancel()

	// 创建一个5秒超时的上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server stopped")
}
