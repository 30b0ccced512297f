package cmd

import (
	"context"
	"fmt"
	"log"

	"musicbox/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "查看MinIO中的音频文件",
	Long:  `列出存储桶中的音频对象，或只显示统计信息（对象数、总大小、最后修改时间）。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		store, err := storage.NewMinioAudioStore(cfg)
		if err != nil {
			log.Fatalf("创建MinIO客户端失败: %v", err)
		}

		objects, stats, err := store.ListObjects(context.Background(), minioPrefix)
		if err != nil {
			log.Fatalf("列出文件失败: %v", err)
		}

		if !minioStats {
			for _, obj := range objects {
				fmt.Printf("%-60s %10s  %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04:05"))
			}
		}

		fmt.Printf("\n存储桶 %s (前缀: %q)\n", store.Bucket(), minioPrefix)
		fmt.Printf("对象数量: %d\n", stats.TotalObjects)
		fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
		if !stats.LastModified.IsZero() {
			fmt.Printf("最后修改: %s\n", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "audio/", "对象前缀")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "只显示统计信息")
	rootCmd.AddCommand(minioCmd)
}
