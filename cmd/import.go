package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"musicbox/core/importer"
	"musicbox/server"

	"github.com/spf13/cobra"
)

var (
	importDir   string
	importWatch bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "从目录批量导入音频文件",
	Long: `导入目录中的音频文件（mp3/m4a/wav/flac/ogg）。文件名形如 "歌手 - 歌名.mp3"，
同名的 .jpg/.png 会作为封面。已存在的歌曲会被跳过。使用 --watch 持续监听新文件。`,
	Run: func(cmd *cobra.Command, args []string) {
		dir := importDir
		if dir == "" {
			dir = cfg.ImportDir
		}
		if dir == "" {
			log.Fatal("需要通过 --dir 或 IMPORT_DIR 指定导入目录")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := server.OpenBackend(ctx, cfg, nil)
		if err != nil {
			log.Fatalf("无法连接存储: %v", err)
		}
		defer backend.Close()

		im := importer.New(backend.Services.Songs, cfg.MaxUploadBytes())
		if importWatch {
			fmt.Printf("监听目录 %s，按 Ctrl+C 退出\n", dir)
			if err := im.Watch(ctx, dir); err != nil {
				log.Fatalf("监听失败: %v", err)
			}
			return
		}

		res, err := im.ImportDir(ctx, dir)
		if err != nil {
			log.Fatalf("导入失败: %v", err)
		}
		fmt.Printf("导入 %d 首，跳过 %d 首，失败 %d 首\n", res.Imported, res.Skipped, res.Failed)
	},
}

func init() {
	importCmd.Flags().StringVarP(&importDir, "dir", "d", "", "导入目录（默认 IMPORT_DIR）")
	importCmd.Flags().BoolVarP(&importWatch, "watch", "w", false, "持续监听目录中的新文件")
	rootCmd.AddCommand(importCmd)
}
