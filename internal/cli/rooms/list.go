package rooms

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopchat/internal/tui/api"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in (run 'shopchat auth login')")
		}

		skip, _ := cmd.Flags().GetInt("skip")
		limit, _ := cmd.Flags().GetInt("limit")

		client := api.NewClient(viper.GetString("server.base_url"), token)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		rooms, err := client.ListRooms(ctx, skip, limit)
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}

		if len(rooms) == 0 {
			fmt.Println("No chat rooms yet.")
			return nil
		}

		fmt.Printf("%-8s %-30s %s\n", "ID", "NAME", "CREATED")
		for _, room := range rooms {
			name := room.Name
			if name == "" {
				name = fmt.Sprintf("room-%d", room.ID)
			}
			fmt.Printf("%-8d %-30s %s\n", room.ID, name, room.CreatedAt.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("skip", 0, "Number of rooms to skip")
	listCmd.Flags().Int("limit", 100, "Maximum rooms to return")
	RoomsCmd.AddCommand(listCmd)
}
