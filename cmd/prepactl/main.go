// Command prepactl is the operator CLI: question bank imports, attempt
// inspection and development tokens.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prepaconcours/prepa-backend/internal/config"
	"github.com/prepaconcours/prepa-backend/internal/database"
	"github.com/prepaconcours/prepa-backend/internal/logger"
	"github.com/prepaconcours/prepa-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs. Connections open lazily.
type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	stores *repository.Stores
	rdb    *redis.Client
}

var rootCmd = &cobra.Command{
	Use:           "prepactl",
	Short:         "Operate the prepa exam backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	a := &app{
		cfg: cfg,
		log: logger.Setup(cfg.LogLevel, cfg.LogFormat).With().Str("component", "prepactl").Logger(),
	}
	defer a.close()

	rootCmd.AddCommand(a.questionsCmd(), a.attemptsCmd(), a.tokenCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		a.close()
		os.Exit(1)
	}
}

func (a *app) store(ctx context.Context) (*repository.Stores, error) {
	if a.stores != nil {
		return a.stores, nil
	}
	stores, err := repository.OpenStores(ctx, a.cfg, a.log)
	if err != nil {
		return nil, err
	}
	a.stores = stores
	return stores, nil
}

// redis returns nil when Redis is unreachable; callers treat it as optional.
func (a *app) redis(ctx context.Context) *redis.Client {
	if a.rdb != nil {
		return a.rdb
	}
	rdb, err := database.NewRedisClient(ctx, a.cfg, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and drafts")
		return nil
	}
	a.rdb = rdb
	return rdb
}

func (a *app) close() {
	if a.stores != nil {
		a.stores.Close()
		a.stores = nil
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
		a.rdb = nil
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
