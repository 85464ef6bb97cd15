package payouts

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"affiliateBack/internal/payouts/events"
)

// Logger is the minimal logging interface required by the payouts module.
type Logger interface {
	Infof(string, ...interface{})
	Errorf(string, ...interface{})
}

// Deps aggregates runtime dependencies for the payouts module.
type Deps struct {
	DB     *sql.DB
	Driver string
	// RDB is optional. Without it the query cache is process-local and
	// events stay on the in-process bus.
	RDB    *redis.Client
	Logger Logger
	Config Config
	Bus    *events.Bus
	module *Module
}

// Validate ensures that the deps struct contains the essentials before bootstrapping services.
func (d *Deps) Validate() error {
	if d == nil {
		return fmt.Errorf("payouts deps are nil")
	}
	if d.DB == nil {
		return fmt.Errorf("payouts deps DB is required")
	}
	if d.Logger == nil {
		return fmt.Errorf("payouts deps Logger is required")
	}
	if d.Driver == "" {
		d.Driver = "mysql"
	}
	if d.Config == (Config{}) {
		d.Config = DefaultConfig()
	}
	if d.Bus == nil {
		d.Bus = events.NewBus(d.Logger)
	}
	return nil
}
