package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/viper"

	"shopchat/internal/tui"
	"shopchat/internal/tui/config"
	"shopchat/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		fmt.Println("Using default configuration...")
		cfg = config.Default()
	}
	logger.Init(cfg.Log)

	app, err := tui.New(cfg, savedToken())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		app,
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

// savedToken reads the credential written by 'shopchat auth login'.
func savedToken() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	v := viper.New()
	v.SetConfigFile(filepath.Join(home, ".shopchat", "config.yaml"))
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.GetString("user.token")
}
