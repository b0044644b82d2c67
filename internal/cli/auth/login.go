package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"shopchat/internal/chat"
	"shopchat/internal/tui/api"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the chat service",
	Long:  "Authenticate with your username and password and save the access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")

		if username == "" {
			fmt.Print("Username: ")
			fmt.Scanln(&username)
		}

		fmt.Print("Password: ")
		password, _ := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()

		client := api.NewClient(viper.GetString("server.base_url"), "")

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		resp, err := client.Login(ctx, username, string(password))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		// The token must carry a usable identity before we persist it.
		userID, err := chat.ResolveUserID(resp.AccessToken)
		if err != nil {
			return fmt.Errorf("server returned an unusable token: %w", err)
		}

		// Prefer the server's canonical profile over whatever was typed.
		client.SetToken(resp.AccessToken)
		if profile, err := client.Me(ctx); err == nil && profile.Username != "" {
			username = profile.Username
		}

		home, _ := os.UserHomeDir()
		configDir := filepath.Join(home, ".shopchat")
		os.MkdirAll(configDir, 0755)

		viper.Set("user.username", username)
		viper.Set("user.id", userID)
		viper.Set("user.token", resp.AccessToken)
		if err := viper.WriteConfigAs(filepath.Join(configDir, "config.yaml")); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		fmt.Println("✓ Login successful!")
		fmt.Printf("  Welcome back, %s (user %d)!\n", username, userID)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "Username")
	AuthCmd.AddCommand(loginCmd)
}
