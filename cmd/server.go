package cmd

import (
	"musicbox/logger"
	"musicbox/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动musicbox服务器",
	Long:  `启动HTTP服务器，提供歌曲、歌单、收藏的REST API以及 /ws/library 变更推送`,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	if err := server.Start(cfg); err != nil {
		logger.Fatal("Server exited with error", logger.ErrorField(err))
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
