package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sbenjam1n/statstage/internal/chat"
	"github.com/sbenjam1n/statstage/internal/db"
	"github.com/sbenjam1n/statstage/internal/panel"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat management",
}

var chatCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a chat with its users and characters",
	RunE: func(cmd *cobra.Command, args []string) error {
		users, _ := cmd.Flags().GetStringArray("user")
		characters, _ := cmd.Flags().GetStringArray("character")
		configFile, _ := cmd.Flags().GetString("config")
		sets, _ := cmd.Flags().GetStringArray("set")
		env, _ := cmd.Flags().GetString("environment")
		if len(users) == 0 {
			return fmt.Errorf("at least one --user is required")
		}
		if env == "" {
			env = cfg.Environment
		}

		doc, err := loadMetadata()
		if err != nil {
			return err
		}
		config := doc.ConfigDefaults()
		if configFile != "" {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return fmt.Errorf("read config: %w", err)
			}
			var fromFile map[string]any
			if err := yaml.Unmarshal(data, &fromFile); err != nil {
				return fmt.Errorf("decode config %s: %w", configFile, err)
			}
			for k, v := range fromFile {
				config[k] = v
			}
		}
		for _, kv := range sets {
			k, v, err := parseSet(kv)
			if err != nil {
				return err
			}
			config[k] = v
		}

		c := &chat.Chat{ID: chat.NewID(), Environment: env, Config: config}
		for _, arg := range users {
			p, err := parseParticipant(c.ID, chat.KindUser, arg)
			if err != nil {
				return err
			}
			c.Participants = append(c.Participants, p)
		}
		for _, arg := range characters {
			p, err := parseParticipant(c.ID, chat.KindCharacter, arg)
			if err != nil {
				return err
			}
			c.Participants = append(c.Participants, p)
		}

		ctx := context.Background()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.NewStore(pool).CreateChat(ctx, c); err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		fmt.Printf("Chat created: %s\n", c.ID)
		fmt.Printf("Environment: %s\n", c.Environment)
		fmt.Printf("Users: %d  Characters: %d\n", len(users), len(characters))
		return nil
	},
}

var chatStatusCmd = &cobra.Command{
	Use:   "status <chat-id>",
	Short: "Show a chat's participants, message tree and head state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		nodes, err := store.ListNodes(ctx, c.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Chat: %s (%s)\n", c.ID, c.Environment)
		if c.StageDisabled {
			fmt.Printf("Stage: DISABLED (%s)\n", c.DisabledNote)
		} else {
			fmt.Println("Stage: active")
		}
		fmt.Println("\nParticipants:")
		for _, p := range c.Participants {
			fmt.Printf("  [%s] %s %s  anon=%s\n", p.Kind, p.ID, p.Name, p.AnonymizedID)
		}

		fmt.Println("\nMessages:")
		if len(nodes) == 0 {
			fmt.Println("  (none)")
		}
		printTree(nodes, c.HeadNodeID)

		for _, n := range nodes {
			if n.ID == c.HeadNodeID {
				fmt.Println("\nHead state:")
				for _, k := range sortedStateKeys(n.MessageState) {
					fmt.Printf("  %s: %s\n", k, panel.FormatValue(n.MessageState[k]))
				}
			}
		}
		return nil
	},
}

// printTree writes the message tree depth first. Siblings are swipes or
// branches; the head is marked with an asterisk.
func printTree(nodes []chat.Node, head string) {
	children := make(map[string][]chat.Node)
	for _, n := range nodes {
		children[n.ParentID] = append(children[n.ParentID], n)
	}
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, n := range children[parent] {
			mark := " "
			if n.ID == head {
				mark = "*"
			}
			fmt.Printf("%s %s%s [%s] %s\n", mark, strings.Repeat("  ", depth+1), n.ID, n.AuthorKind, preview(n.Content))
			walk(n.ID, depth+1)
		}
	}
	walk("", 0)
}

func preview(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}

func sortedStateKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseParticipant reads "id:name" or "id:name:description".
func parseParticipant(chatID, kind, arg string) (chat.Participant, error) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return chat.Participant{}, fmt.Errorf("invalid %s %q: expected id:name", kind, arg)
	}
	p := chat.Participant{
		ID:           parts[0],
		Kind:         kind,
		Name:         parts[1],
		AnonymizedID: chat.AnonymizedID(chatID, kind, parts[0]),
	}
	if len(parts) == 3 {
		p.Description = parts[2]
	}
	return p, nil
}

// parseSet reads key=value, decoding value as a YAML scalar or flow value.
func parseSet(kv string) (string, any, error) {
	k, raw, ok := strings.Cut(kv, "=")
	if !ok || k == "" {
		return "", nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return "", nil, fmt.Errorf("invalid --set value for %s: %w", k, err)
	}
	return k, v, nil
}

func init() {
	chatCreateCmd.Flags().StringArray("user", nil, "User as id:name (repeatable)")
	chatCreateCmd.Flags().StringArray("character", nil, "Character as id:name[:description] (repeatable)")
	chatCreateCmd.Flags().String("config", "", "YAML file with stage config")
	chatCreateCmd.Flags().StringArray("set", nil, "Config override as key=value (repeatable)")
	chatCreateCmd.Flags().String("environment", "", "Environment name handed to the stage (default $STAGE_ENVIRONMENT)")

	chatCmd.AddCommand(chatCreateCmd)
	chatCmd.AddCommand(chatStatusCmd)
}
