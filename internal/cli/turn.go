package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/sbenjam1n/statstage/internal/db"
	"github.com/sbenjam1n/statstage/internal/host"
	"github.com/sbenjam1n/statstage/internal/queue"
	"github.com/sbenjam1n/statstage/internal/stage"
	"github.com/sbenjam1n/statstage/internal/validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var turnCmd = &cobra.Command{
	Use:   "turn",
	Short: "Drive the stage through chat turns",
}

var turnPromptCmd = &cobra.Command{
	Use:   "prompt <chat-id> <message>",
	Short: "Send a user message: runs BeforePrompt and records the node",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		ctx := context.Background()
		s, done, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer done()

		res, err := s.Prompt(ctx, userID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printTurn(res)
		return nil
	},
}

var turnRespondCmd = &cobra.Command{
	Use:   "respond <chat-id> <message>",
	Short: "Record a bot reply: runs AfterResponse and records the node",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		characterID, _ := cmd.Flags().GetString("character")
		if characterID == "" {
			return fmt.Errorf("--character is required")
		}
		ctx := context.Background()
		s, done, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer done()

		res, err := s.Respond(ctx, characterID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		printTurn(res)
		return nil
	},
}

var turnJumpCmd = &cobra.Command{
	Use:   "jump <chat-id> <node-id>",
	Short: "Switch to another message node (swipe or branch): runs SetState",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, done, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer done()

		if err := s.Jump(ctx, args[1]); err != nil {
			return err
		}
		fmt.Printf("Head: %s\n", s.Head().ID)
		return nil
	},
}

// openSession wires the store, event stream and advisory checker into a
// runner and opens the chat. Redis is optional; without it events are
// dropped with a warning.
func openSession(ctx context.Context, chatID string) (*host.Session, func(), error) {
	pool, err := connectDB(ctx)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){pool.Close}
	done := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []host.Option{host.WithLogger(log)}
	if rdb, err := connectRedis(); err != nil {
		log.Warn("events disabled", zap.Error(err))
	} else {
		closers = append(closers, func() { _ = rdb.Close() })
		opts = append(opts, host.WithPublisher(queue.New(rdb)))
	}

	doc, err := loadMetadata()
	if err != nil {
		log.Warn("metadata unavailable, skipping state checks", zap.Error(err))
	} else if doc != nil {
		opts = append(opts, host.WithChecker(validator.New(doc)))
	}

	r := host.NewRunner(db.NewStore(pool), stage.NewStage(stage.WithLogger(log)), opts...)
	s, err := r.Open(ctx, chatID)
	if err != nil {
		done()
		if host.IsNotFound(err) {
			return nil, nil, fmt.Errorf("chat %s not found", chatID)
		}
		return nil, nil, err
	}
	for _, n := range s.Notices() {
		fmt.Printf("Notice: %s\n", n)
	}
	if !s.Active() {
		fmt.Printf("Stage disabled for this chat: %s\n", s.Chat().DisabledNote)
	}
	return s, done, nil
}

func printTurn(res *host.TurnResult) {
	fmt.Printf("Node: %s [%s]\n", res.Node.ID, res.Node.AuthorKind)
	fmt.Printf("Content: %s\n", res.Node.Content)
	if res.StageDirections != "" {
		fmt.Printf("\n--- Stage directions ---\n%s\n---\n", res.StageDirections)
	}
	if res.System != nil {
		fmt.Printf("System: %s\n", res.System.Content)
	}
	for _, n := range res.Notices {
		fmt.Printf("Notice: %s\n", n)
	}
	fmt.Println("\nState:")
	for _, k := range sortedStateKeys(res.Node.MessageState) {
		fmt.Printf("  %s: %v\n", k, res.Node.MessageState[k])
	}
}

func init() {
	turnPromptCmd.Flags().String("user", "", "User id sending the message (required)")
	turnRespondCmd.Flags().String("character", "", "Character id replying (required)")

	turnCmd.AddCommand(turnPromptCmd)
	turnCmd.AddCommand(turnRespondCmd)
	turnCmd.AddCommand(turnJumpCmd)
}
