package cli

import (
	"context"
	"fmt"

	"github.com/sbenjam1n/statstage/internal/db"
	"github.com/sbenjam1n/statstage/internal/metadata"
	"github.com/sbenjam1n/statstage/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [chat-id]",
	Short: "Lint stage.yaml (Tier 0) and check a chat's persisted state against it (Tier 1)",
	Long: `Tier 0 checks the metadata document itself. With a chat id, Tier 1 compares
the chat's init, chat and head message state with the advertised
state_schema. Tier 1 findings are advisory: the stage never relies on them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := metadata.Load(metadataPath())
		if err != nil {
			return err
		}
		v := validator.New(doc)

		fmt.Printf("Validating %s...\n", metadataPath())
		result := v.Metadata()
		fmt.Printf("  Tier 0 (Metadata): %s\n", formatValidationResult(result))
		if !result.Passed {
			return fmt.Errorf("metadata validation failed")
		}
		if len(args) == 0 {
			return nil
		}

		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := db.NewStore(pool)
		c, err := store.GetChat(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("  Tier 1 (%s state): %s\n", metadata.ScopeInit,
			formatValidationResult(v.State(metadata.ScopeInit, c.InitState)))
		fmt.Printf("  Tier 1 (%s state): %s\n", metadata.ScopeChat,
			formatValidationResult(v.State(metadata.ScopeChat, c.ChatState)))

		if c.HeadNodeID == "" {
			fmt.Println("  Tier 1 (message state): SKIPPED (no messages)")
			return nil
		}
		head, err := store.GetNode(ctx, c.HeadNodeID)
		if err != nil {
			return err
		}
		fmt.Printf("  Tier 1 (%s state): %s\n", metadata.ScopeMessage,
			formatValidationResult(v.State(metadata.ScopeMessage, head.MessageState)))
		return nil
	},
}

func formatValidationResult(r *validator.Result) string {
	if r.Passed {
		return "PASSED"
	}
	result := fmt.Sprintf("FAILED (code %d): %s", r.Code, r.Message)
	for _, d := range r.Details {
		if !d.Passed && d.Fix != "" {
			result += fmt.Sprintf("\n    Fix: %s", d.Fix)
		}
	}
	return result
}
