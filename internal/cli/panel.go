package cli

import (
	"context"
	"fmt"

	"github.com/sbenjam1n/statstage/internal/panel"
	"github.com/sbenjam1n/statstage/internal/stats"
	"github.com/spf13/cobra"
)

var panelCmd = &cobra.Command{
	Use:   "panel <chat-id>",
	Short: "Show the stats panel for a chat's current state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		open, _ := cmd.Flags().GetStringArray("open")
		all, _ := cmd.Flags().GetBool("all")
		interactive, _ := cmd.Flags().GetBool("interactive")
		width, _ := cmd.Flags().GetInt("width")

		ctx := context.Background()
		s, done, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer done()

		p := panel.New(stats.Default())
		if all {
			p.OpenAll()
		}
		for _, id := range open {
			if !p.Toggle(id) {
				return fmt.Errorf("unknown category %q (have %v)", id, stats.Default().IDs())
			}
		}

		state := s.State()
		if interactive {
			return panel.Run(panel.NewView(p, state, "Stats: "+s.Chat().ID))
		}
		fmt.Println(p.Render(state, width))
		return nil
	},
}

func init() {
	panelCmd.Flags().StringArray("open", nil, "Category id to expand (repeatable)")
	panelCmd.Flags().Bool("all", false, "Expand every category")
	panelCmd.Flags().BoolP("interactive", "i", false, "Open the interactive panel")
	panelCmd.Flags().Int("width", 0, "Render width (0 for natural width)")
}
