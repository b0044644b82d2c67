// Package tui hosts the terminal chat client.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"shopchat/internal/chat"
	"shopchat/internal/repository"
	"shopchat/internal/tui/api"
	"shopchat/internal/tui/config"
	"shopchat/internal/tui/styles"
	"shopchat/internal/tui/views"
)

// App is the root bubbletea model: a title bar around the chat view.
type App struct {
	chat     views.ChatModel
	quitting bool
}

// New wires the API client, offline queue backend and chat view together.
// The token must resolve to a user id before any network work starts.
func New(cfg *config.Config, token string) (*App, error) {
	userID, err := chat.ResolveUserID(token)
	if err != nil {
		return nil, fmt.Errorf("not logged in (run 'shopchat auth login'): %w", err)
	}

	store, err := BuildStore(cfg.Queue)
	if err != nil {
		return nil, err
	}

	client := api.NewClient(cfg.Server.BaseURL, token)
	chatCfg := chat.Config{BaseURL: cfg.Server.BaseURL}

	return &App{
		chat: views.NewChatModel(client, chatCfg, store, userID),
	}, nil
}

// BuildStore selects the offline queue backend from configuration.
func BuildStore(cfg config.QueueConfig) (repository.MessageStore, error) {
	switch cfg.Backend {
	case "", "sqlite":
		store, err := repository.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open offline queue: %w", err)
		}
		return store, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return repository.NewRedisStore(client), nil
	case "memory":
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}

func (a *App) Init() tea.Cmd {
	return a.chat.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			a.quitting = true
			a.chat.Close()
			return a, tea.Quit
		}
	}

	var cmd tea.Cmd
	a.chat, cmd = a.chat.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	if a.quitting {
		return "Bye!\n"
	}
	return styles.TitleStyle.Render("shopchat") + "\n\n" + a.chat.View()
}
