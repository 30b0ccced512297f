package cmd

import (
	"context"
	"fmt"
	"log"

	"musicbox/server"

	"github.com/spf13/cobra"
)

var fixCategoriesCmd = &cobra.Command{
	Use:   "fix-categories",
	Short: "为缺少分类的歌曲补全分类",
	Long:  `扫描所有没有分类的歌曲，按 显式分类 > 语言 > 关键词 的规则写入 local 或 global。重复执行不会修改任何歌曲。`,
	Run: func(cmd *cobra.Command, args []string) {
		backend, err := server.OpenBackend(context.Background(), cfg, nil)
		if err != nil {
			log.Fatalf("无法连接存储: %v", err)
		}
		defer backend.Close()

		res, err := backend.Services.Songs.FixMissingCategories(context.Background())
		if err != nil {
			log.Fatalf("补全分类失败（已更新 %d 首）: %v", res.UpdatedCount, err)
		}
		fmt.Printf("检查 %d 首歌曲，更新 %d 首\n", res.TotalChecked, res.UpdatedCount)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "删除重名歌曲，只保留最早上传的一首",
	Run: func(cmd *cobra.Command, args []string) {
		backend, err := server.OpenBackend(context.Background(), cfg, nil)
		if err != nil {
			log.Fatalf("无法连接存储: %v", err)
		}
		defer backend.Close()

		res, err := backend.Services.Songs.DeduplicateByName(context.Background())
		if err != nil {
			log.Fatalf("清理失败（已删除 %d 首）: %v", res.DuplicatesRemoved, err)
		}
		fmt.Printf("清理完成: 删除 %d 首重复歌曲，%d -> %d\n",
			res.DuplicatesRemoved, res.TotalSongsBefore, res.TotalSongsAfter)
	},
}

func init() {
	rootCmd.AddCommand(fixCategoriesCmd)
	rootCmd.AddCommand(cleanupCmd)
}
