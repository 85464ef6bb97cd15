package payouts

import (
	"context"
	"fmt"

	"affiliateBack/internal/payouts/cache"
	"affiliateBack/internal/payouts/engine"
	"affiliateBack/internal/payouts/events"
	"affiliateBack/internal/payouts/repo"
	"affiliateBack/internal/payouts/store"
)

// Module holds the wired payouts components.
type Module struct {
	Dialect    repo.Dialect
	Affiliates *repo.AffiliatesRepo
	Referrals  *repo.ReferralsRepo
	Payouts    *repo.PayoutsRepo
	Cache      cache.Cache
	Store      *store.Store
	Notifier   events.Notifier
	Engine     *engine.Engine
}

func ensureModule(deps *Deps) (*Module, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}

	dialect, err := repo.DialectFor(deps.Driver)
	if err != nil {
		return nil, err
	}

	affiliatesRepo := repo.NewAffiliatesRepo(deps.DB, dialect)
	referralsRepo := repo.NewReferralsRepo(deps.DB, dialect)
	payoutsRepo := repo.NewPayoutsRepo(deps.DB, dialect)

	var queryCache cache.Cache = cache.NewMemory()
	notifier := events.Multi{deps.Bus}
	if deps.RDB != nil {
		queryCache = cache.NewRedis(deps.RDB, deps.Config.CachePrefix)
		notifier = append(notifier, events.NewRedisPublisher(deps.RDB, deps.Config.EventsChannel, deps.Logger))
	}

	payoutStore := store.New(payoutsRepo, referralsRepo, queryCache, deps.Config.CacheTTL, deps.Logger)
	payoutEngine := engine.New(affiliatesRepo, referralsRepo, payoutStore, notifier, deps.Logger, engine.Options{
		ExclusiveReferrals: deps.Config.ExclusiveReferrals,
	})

	deps.module = &Module{
		Dialect:    dialect,
		Affiliates: affiliatesRepo,
		Referrals:  referralsRepo,
		Payouts:    payoutsRepo,
		Cache:      queryCache,
		Store:      payoutStore,
		Notifier:   notifier,
		Engine:     payoutEngine,
	}
	return deps.module, nil
}

// Bootstrap wires the payouts module once and returns it.
func Bootstrap(deps *Deps) (*Module, error) {
	return ensureModule(deps)
}

// Migrate creates the payout and ledger tables for the configured driver.
func Migrate(ctx context.Context, deps *Deps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	if err := repo.CreateTables(ctx, deps.DB, module.Dialect); err != nil {
		return fmt.Errorf("payouts migrate: %w", err)
	}
	deps.Logger.Infof("payouts tables ready (%s)", module.Dialect)
	return nil
}
