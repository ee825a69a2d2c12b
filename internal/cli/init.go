package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/sbenjam1n/statstage/internal/db"
	"github.com/sbenjam1n/statstage/internal/metadata"
	"github.com/sbenjam1n/statstage/internal/queue"
	"github.com/spf13/cobra"
)

var minimal bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the reference host",
	Long:  "Initialize: stage.yaml, PostgreSQL schema, Redis stream and consumer group",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		path := metadataPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, metadata.DefaultYAML, 0644); err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			fmt.Printf("Created %s\n", path)
		} else {
			fmt.Printf("%s already exists\n", path)
		}

		if minimal {
			fmt.Println("\nMinimal init complete. Run 'stage init' (without --minimal) to set up PostgreSQL and Redis.")
			return nil
		}

		fmt.Println("Connecting to PostgreSQL...")
		pool, err := connectDB(ctx)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()

		fmt.Println("Running migrations...")
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("PostgreSQL schema created")

		fmt.Println("Connecting to Redis...")
		rdb, err := connectRedis()
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer rdb.Close()

		if err := queue.New(rdb).EnsureStreams(ctx); err != nil {
			return fmt.Errorf("redis stream setup failed: %w", err)
		}
		fmt.Println("Redis stream created")

		fmt.Println("\nReference host initialized.")
		fmt.Println("Next steps:")
		fmt.Println("  1. Run: stage chat create --user u1:Ann --character c1:Mira")
		fmt.Println("  2. Run: stage turn prompt <chat> --user u1 \"hello\"")
		fmt.Println("  3. Run: stage panel <chat> --interactive")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&minimal, "minimal", false, "Minimal init: stage.yaml only")
}
