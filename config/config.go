package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Most values come from the environment (optionally via a .env file) with simple defaults.
type Config struct {
	ServerAddr string // HTTP listen address, e.g. ":8080"
	JWTSecret  string // Secret used to sign session tokens

	// Attachment storage
	SpoolDir      string // Local spool directory where the editor drops audio attachments
	AttachmentDir string // Subdirectory for audio attachments: SpoolDir/audio

	// MySQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO对象存储配置
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// 音乐元数据服务
	MetadataAPIURL string // 封面/曲目信息查询服务地址

	// AI服务配置（语音转写与摘要）
	AIEnabled          bool
	AIAPIBaseURL       string
	AIAPIKey           string
	TranscribeModel    string // 语音转文字模型，例如 whisper-1
	SummaryModel       string // 摘要模型
	SummaryMaxTokens   int
	SummaryTemperature float64

	// 播放进度采样
	ProgressInterval time.Duration // 进度采样周期，默认100ms
	VisibleLimit     int           // 列表折叠时可见的附件数，默认3
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// Attempt to load .env file. godotenv.Load() will not override existing env vars.
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	spoolBase := getEnv("SPOOL_DIR", "spool")

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		JWTSecret:  getEnv("JWT_SECRET", "notefm-dev-secret"),

		SpoolDir:      spoolBase,
		AttachmentDir: filepath.Join(spoolBase, "audio"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "notefm"),

		// Redis配置，使用默认值
		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),     // 默认使用0号数据库

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "notefm"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		MetadataAPIURL: getEnv("METADATA_API_URL", "http://localhost:3000"),

		AIEnabled:          getEnvBool("AI_ENABLED", false),
		AIAPIBaseURL:       getEnv("AI_API_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:           os.Getenv("AI_API_KEY"),
		TranscribeModel:    getEnv("AI_TRANSCRIBE_MODEL", "whisper-1"),
		SummaryModel:       getEnv("AI_SUMMARY_MODEL", "gpt-4o-mini"),
		SummaryMaxTokens:   getEnvInt("AI_SUMMARY_MAX_TOKENS", 1024),
		SummaryTemperature: getEnvFloat("AI_SUMMARY_TEMPERATURE", 0.3),

		ProgressInterval: time.Duration(getEnvInt("PROGRESS_INTERVAL_MS", 100)) * time.Millisecond,
		VisibleLimit:     getEnvInt("VISIBLE_LIMIT", 3),
	}
}
