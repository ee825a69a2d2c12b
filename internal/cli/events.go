package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/queue"
	"github.com/sbenjam1n/statstage/internal/watcher"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Stage event stream",
}

var eventsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many hook events are in Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		n, err := queue.New(rdb).Status(context.Background())
		if err != nil {
			return fmt.Errorf("events status: %w", err)
		}

		fmt.Printf("Event Stream Status:\n")
		fmt.Printf("  %s: %d entries\n", queue.StreamEvents, n)
		return nil
	},
}

var eventsFollowCmd = &cobra.Command{
	Use:   "follow",
	Short: "Print hook events as they arrive, as a member of the watchers group",
	RunE: func(cmd *cobra.Command, args []string) error {
		consumer, _ := cmd.Flags().GetString("consumer")
		chatFilter, _ := cmd.Flags().GetString("chat")

		rdb, err := connectRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watcher.New(queue.New(rdb), consumer, log)
		fmt.Printf("Following %s as %s. Ctrl+C to stop.\n", queue.StreamEvents, consumer)
		err = w.Consume(ctx, func(_ context.Context, e *chat.Event) error {
			if chatFilter != "" && e.ChatID != chatFilter {
				return nil
			}
			printEvent(e)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func printEvent(e *chat.Event) {
	fmt.Printf("%s  %-14s chat=%s", e.At.Format("15:04:05"), e.Hook, e.ChatID)
	if e.NodeID != "" {
		fmt.Printf(" node=%s", e.NodeID)
	}
	fmt.Println()
	for _, k := range sortedStateKeys(e.MessageState) {
		fmt.Printf("    %s: %v\n", k, e.MessageState[k])
	}
	if e.SystemMessage != "" {
		fmt.Printf("    system: %s\n", e.SystemMessage)
	}
	if e.Error != "" {
		fmt.Printf("    error: %s\n", e.Error)
	}
}

func init() {
	hostname, _ := os.Hostname()
	eventsFollowCmd.Flags().String("consumer", "watcher-"+hostname, "Consumer name within the watchers group")
	eventsFollowCmd.Flags().String("chat", "", "Only print events for this chat")

	eventsCmd.AddCommand(eventsStatusCmd)
	eventsCmd.AddCommand(eventsFollowCmd)
}
