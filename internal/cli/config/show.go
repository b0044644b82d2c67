package config

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	tuiconfig "shopchat/internal/tui/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := tuiconfig.Load("")
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		fmt.Print(string(data))

		if username := viper.GetString("user.username"); username != "" {
			fmt.Printf("user:\n    username: %s\n    id: %d\n", username, viper.GetInt64("user.id"))
		}
		return nil
	},
}

func init() {
	ConfigCmd.AddCommand(showCmd)
}
