package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopchat/internal/cli/auth"
	cliconfig "shopchat/internal/cli/config"
	"shopchat/internal/cli/rooms"
	"shopchat/internal/cli/send"
	"shopchat/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "shopchat",
	Short: "Chat client for the storefront",
	Long:  "Send and receive chat messages, with offline queueing when the server is unreachable",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(rooms.RoomsCmd)
	rootCmd.AddCommand(send.SendCmd)
	rootCmd.AddCommand(cliconfig.ConfigCmd)
}

func initConfig() {
	viper.SetDefault("server.base_url", "http://127.0.0.1:8000")

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".shopchat", "config.yaml"))
	// Missing config just means nobody logged in yet.
	viper.ReadInConfig()

	logger.Init(logger.Config{Level: "info", Format: "text"})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
