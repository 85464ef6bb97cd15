package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"affiliateBack/internal/config"
	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts"
	"affiliateBack/internal/payouts/repo"
)

type app struct {
	configPath string
	logger     *zap.SugaredLogger
	db         *sql.DB
	rdb        *redis.Client
	deps       *payouts.Deps
	module     *payouts.Module
}

func main() {
	a := &app{}
	root := newRootCmd(a)
	err := root.ExecuteContext(context.Background())
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "payouts",
		Short:         "Affiliate payout settlement",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "config.yaml", "path to yaml config")

	root.AddCommand(
		migrateCmd(a),
		addCmd(a),
		getCmd(a),
		deleteCmd(a),
		labelCmd(a),
		referralsCmd(a),
		setStatusCmd(a),
		listCmd(a),
		countCmd(a),
	)
	return root
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}

	a.logger, err = newLogger(cfg.Log.Production)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	moduleCfg, err := payouts.LoadConfig()
	if err != nil {
		return err
	}

	a.db, _, err = repo.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	a.deps = &payouts.Deps{
		DB:     a.db,
		Driver: cfg.Database.Driver,
		RDB:    a.rdb,
		Logger: a.logger,
		Config: moduleCfg,
	}
	a.module, err = payouts.Bootstrap(a.deps)
	return err
}

func (a *app) close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newLogger(production bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Exit codes.
const (
	exitFailure  = 1
	exitInvalid  = 2
	exitNotFound = 3
	exitStore    = 4
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return exitNotFound
	case errors.Is(err, models.ErrInvalidAffiliate),
		errors.Is(err, models.ErrNoReferrals),
		errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrInvalidFilter):
		return exitInvalid
	case errors.Is(err, models.ErrStoreFailure):
		return exitStore
	default:
		return exitFailure
	}
}
