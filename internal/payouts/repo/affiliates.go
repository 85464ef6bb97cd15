package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AffiliatesRepo answers affiliate existence checks.
type AffiliatesRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewAffiliatesRepo creates repo.
func NewAffiliatesRepo(db *sql.DB, dialect Dialect) *AffiliatesRepo {
	return &AffiliatesRepo{db: db, dialect: dialect}
}

// Create inserts an active affiliate for the given user.
func (r *AffiliatesRepo) Create(ctx context.Context, userID int64) (int64, error) {
	return r.dialect.insertID(ctx, r.db,
		`INSERT INTO affiliate_wp_affiliates (user_id, status, date_registered) VALUES (?,?,?)`,
		"affiliate_id",
		userID, "active", dbTime(time.Now()))
}

// Exists reports whether the affiliate is present.
func (r *AffiliatesRepo) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM affiliate_wp_affiliates WHERE affiliate_id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
