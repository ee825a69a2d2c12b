package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sbenjam1n/statstage/internal/config"
	"github.com/sbenjam1n/statstage/internal/db"
	"github.com/sbenjam1n/statstage/internal/logging"
	"github.com/sbenjam1n/statstage/internal/metadata"
	"github.com/sbenjam1n/statstage/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg     *config.Config
	log     *zap.Logger
	rootCmd = &cobra.Command{
		Use:   "stage",
		Short: "Stat Tracker: a chat stage that tracks character stats in message state",
		Long: `stage runs the Stat Tracker stage against a local reference host.

Chats, participants and the message tree live in PostgreSQL. Every hook
outcome is published to a Redis stream for watchers.

Typical session:
  stage init
  stage chat create --user u1:Ann --character c1:Mira
  stage turn prompt <chat> --user u1 "hello"
  stage turn respond <chat> --character c1 "*Mood: calm"
  stage panel <chat> --all`,
		SilenceUsage: true,
	}
)

// Execute runs the root command.
func Execute() error {
	defer func() {
		if log != nil {
			_ = log.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(turnCmd)
	rootCmd.AddCommand(panelCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	log, err = logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet STAGE_DATABASE_URL environment variable", err)
	}
	return pool, nil
}

func connectRedis() (*redis.Client, error) {
	rdb, err := queue.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%w\nSet STAGE_REDIS_URL environment variable", err)
	}
	return rdb, nil
}

func metadataPath() string {
	if filepath.IsAbs(cfg.MetadataPath) {
		return cfg.MetadataPath
	}
	return filepath.Join(cfg.ProjectRoot, cfg.MetadataPath)
}

// loadMetadata reads the stage metadata. A missing file is not an error for
// commands that only use it for defaults.
func loadMetadata() (*metadata.Document, error) {
	doc, err := metadata.Load(metadataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return doc, nil
}
