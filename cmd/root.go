package cmd

import (
	"fmt"
	"log"
	"os"

	"NoteFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "notefm_server",
	Short: "NoteFM is an inline audio attachment service for notes.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting NoteFM server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
