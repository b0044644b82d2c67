package send

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shopchat/internal/chat"
	"shopchat/internal/tui"
	"shopchat/internal/tui/config"
	"shopchat/pkg/models"
)

// SendCmd is a one-shot sender: open the channel, deliver the message, and
// fall back to the offline queue when the server cannot be reached. The
// backlog then drains the next time any consumer connects to the room.
var SendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single chat message",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in (run 'shopchat auth login')")
		}

		userID, err := chat.ResolveUserID(token)
		if err != nil {
			return fmt.Errorf("saved token is unusable, login again: %w", err)
		}

		roomID, _ := cmd.Flags().GetString("room")
		message, _ := cmd.Flags().GetString("message")
		msgType, _ := cmd.Flags().GetString("type")

		cfg, err := config.Load("")
		if err != nil {
			return err
		}

		store, err := tui.BuildStore(cfg.Queue)
		if err != nil {
			return err
		}

		queue := chat.NewQueue(store, nil)
		manager := chat.NewManager(chat.Config{BaseURL: cfg.Server.BaseURL}, queue, nil)
		defer manager.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		queued := models.QueuedMessage{
			Content:    message,
			ChatRoomID: roomID,
			Type:       msgType,
		}

		if err := manager.Connect(roomID, userID, chat.Callbacks{}); err != nil {
			if qErr := queue.Enqueue(ctx, queued); qErr != nil {
				return fmt.Errorf("offline and could not queue message: %w", qErr)
			}
			fmt.Println("Server unreachable - message queued for later delivery")
			return nil
		}

		if !manager.Send(models.NewCreateFrame(message, roomID, msgType)) {
			if qErr := queue.Enqueue(ctx, queued); qErr != nil {
				return fmt.Errorf("send failed and could not queue message: %w", qErr)
			}
			fmt.Println("Send failed - message queued for later delivery")
			return nil
		}

		fmt.Println("✓ Message sent")
		return nil
	},
}

func init() {
	SendCmd.Flags().String("room", "", "Chat room id")
	SendCmd.Flags().String("message", "", "Message content")
	SendCmd.Flags().String("type", models.MessageTypeText, "Message type")
	SendCmd.MarkFlagRequired("room")
	SendCmd.MarkFlagRequired("message")
}
