package repo

import (
	"context"
	"database/sql"
	"fmt"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS affiliate_wp_affiliates (
		affiliate_id BIGINT NOT NULL AUTO_INCREMENT,
		user_id BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		date_registered DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (affiliate_id)
	) CHARACTER SET utf8mb4`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_referrals (
		referral_id BIGINT NOT NULL AUTO_INCREMENT,
		affiliate_id BIGINT NOT NULL,
		amount DECIMAL(20,4) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		description VARCHAR(255) NOT NULL DEFAULT '',
		date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (referral_id),
		KEY affiliate_id (affiliate_id)
	) CHARACTER SET utf8mb4`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payouts (
		payout_id BIGINT NOT NULL AUTO_INCREMENT,
		affiliate_id BIGINT NOT NULL,
		amount DECIMAL(20,4) NOT NULL DEFAULT 0,
		payout_method VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'paid',
		date DATETIME NOT NULL,
		PRIMARY KEY (payout_id),
		KEY affiliate_id (affiliate_id)
	) CHARACTER SET utf8mb4`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payout_referrals (
		payout_id BIGINT NOT NULL,
		position INT NOT NULL,
		referral_id BIGINT NOT NULL,
		PRIMARY KEY (payout_id, position),
		KEY referral_id (referral_id)
	) CHARACTER SET utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS affiliate_wp_affiliates (
		affiliate_id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'active',
		date_registered TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_referrals (
		referral_id BIGSERIAL PRIMARY KEY,
		affiliate_id BIGINT NOT NULL,
		amount NUMERIC(20,4) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		description VARCHAR(255) NOT NULL DEFAULT '',
		date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_referrals_affiliate_id ON affiliate_wp_referrals (affiliate_id)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payouts (
		payout_id BIGSERIAL PRIMARY KEY,
		affiliate_id BIGINT NOT NULL,
		amount NUMERIC(20,4) NOT NULL DEFAULT 0,
		payout_method VARCHAR(64) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL DEFAULT 'paid',
		date TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_payouts_affiliate_id ON affiliate_wp_payouts (affiliate_id)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payout_referrals (
		payout_id BIGINT NOT NULL,
		position INT NOT NULL,
		referral_id BIGINT NOT NULL,
		PRIMARY KEY (payout_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_payout_referrals_referral_id ON affiliate_wp_payout_referrals (referral_id)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS affiliate_wp_affiliates (
		affiliate_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		date_registered DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_referrals (
		referral_id INTEGER PRIMARY KEY AUTOINCREMENT,
		affiliate_id INTEGER NOT NULL,
		amount DECIMAL(20,4) NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		description TEXT NOT NULL DEFAULT '',
		date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_referrals_affiliate_id ON affiliate_wp_referrals (affiliate_id)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payouts (
		payout_id INTEGER PRIMARY KEY AUTOINCREMENT,
		affiliate_id INTEGER NOT NULL,
		amount DECIMAL(20,4) NOT NULL DEFAULT 0,
		payout_method TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'paid',
		date DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_payouts_affiliate_id ON affiliate_wp_payouts (affiliate_id)`,
	`CREATE TABLE IF NOT EXISTS affiliate_wp_payout_referrals (
		payout_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		referral_id INTEGER NOT NULL,
		PRIMARY KEY (payout_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS affiliate_wp_payout_referrals_referral_id ON affiliate_wp_payout_referrals (referral_id)`,
}

// CreateTables creates the payout and ledger tables when missing.
func CreateTables(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var stmts []string
	switch dialect {
	case DialectPostgres:
		stmts = postgresSchema
	case DialectSQLite:
		stmts = sqliteSchema
	default:
		stmts = mysqlSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables (%s): %w", dialect, err)
		}
	}
	return nil
}
