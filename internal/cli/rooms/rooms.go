package rooms

import "github.com/spf13/cobra"

var RoomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "Chat room commands",
	Long:  "List the chat rooms available to your account",
}
