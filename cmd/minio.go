package cmd

import (
	"context"
	"fmt"
	"log"

	"NoteFM/config"
	"NoteFM/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中的附件对象，支持按前缀过滤。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		// 加载配置
		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		// 初始化MinIO客户端
		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		client := storage.GetMinioClient()

		fmt.Printf("\n列出存储桶中的文件 (前缀: %s)...\n", minioPrefix)
		var totalSize int64
		count := 0
		for object := range client.ListObjects(context.Background(), cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				log.Fatalf("列出文件失败: %v", object.Err)
			}
			fmt.Printf("  %s (%d bytes)\n", object.Key, object.Size)
			totalSize += object.Size
			count++
		}
		fmt.Printf("\n共 %d 个对象，总大小 %d bytes\n", count, totalSize)

		fmt.Println("\nMinIO操作完成！")
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件")
}
