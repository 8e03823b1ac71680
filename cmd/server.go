package cmd

import (
	"NoteFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动NoteFM服务器",
	Long:  `启动NoteFM笔记音频附件系统的HTTP服务器，提供附件浏览、播放和语音AI接口`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
