package storage

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"NoteFM/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	bucketName  string
)

// 预签名播放链接的有效期
const presignExpiry = 2 * time.Hour

// InitMinio 初始化 MinIO 客户端
func InitMinio(cfg *config.Config) error {
	log.Printf("正在连接 MinIO 服务器...")
	log.Printf("Bucket: %s", cfg.MinioBucket)
	if len(cfg.MinioAccessKey) > 4 {
		log.Printf("AccessKey: %s...", cfg.MinioAccessKey[:4])
	}

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("创建 MinIO 客户端失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 检查存储桶是否存在
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %v", err)
	}

	if !exists {
		// 如果存储桶不存在，尝试创建它
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{
			Region: cfg.MinioRegion,
		})
		if err != nil {
			return fmt.Errorf("创建存储桶失败: %v", err)
		}
		log.Printf("成功创建存储桶: %s", cfg.MinioBucket)
	}

	minioClient = client
	bucketName = cfg.MinioBucket
	log.Println("MinIO 客户端初始化成功！")
	return nil
}

// GetMinioClient 获取 MinIO 客户端实例
func GetMinioClient() *minio.Client {
	return minioClient
}

// UploadAttachment 将本地附件文件上传到对象存储，返回对象键
func UploadAttachment(ctx context.Context, attachmentID, localPath string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	objectKey := fmt.Sprintf("attachments/%s%s", attachmentID, filepath.Ext(localPath))

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("打开附件文件失败: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("读取附件文件信息失败: %w", err)
	}

	_, err = minioClient.PutObject(ctx, bucketName, objectKey, file, stat.Size(), minio.PutObjectOptions{
		ContentType: inferContentType(localPath),
	})
	if err != nil {
		return "", fmt.Errorf("上传附件失败: %w", err)
	}

	return objectKey, nil
}

// PresignStreamURL 为附件生成限时播放链接
func PresignStreamURL(ctx context.Context, objectKey string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}

	u, err := minioClient.PresignedGetObject(ctx, bucketName, objectKey, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("生成预签名链接失败: %w", err)
	}

	return u.String(), nil
}

// RemoveAttachment 从对象存储中删除附件对象
func RemoveAttachment(ctx context.Context, objectKey string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	return minioClient.RemoveObject(ctx, bucketName, objectKey, minio.RemoveObjectOptions{})
}

// inferContentType 根据文件扩展名推断Content-Type
func inferContentType(filename string) string {
	switch filepath.Ext(filename) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".m4a", ".aac":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}
