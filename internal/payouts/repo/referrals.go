package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"affiliateBack/internal/models"
)

const referralColumns = `referral_id, affiliate_id, amount, status, description, date`

// ReferralsRepo is the SQL referral ledger.
type ReferralsRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewReferralsRepo creates repo.
func NewReferralsRepo(db *sql.DB, dialect Dialect) *ReferralsRepo {
	return &ReferralsRepo{db: db, dialect: dialect}
}

// Create inserts a referral and returns its id.
func (r *ReferralsRepo) Create(ctx context.Context, ref models.Referral) (int64, error) {
	if ref.Status == "" {
		ref.Status = models.ReferralStatusPending
	}
	if ref.Date.IsZero() {
		ref.Date = time.Now()
	}
	return r.dialect.insertID(ctx, r.db,
		`INSERT INTO affiliate_wp_referrals (affiliate_id, amount, status, description, date) VALUES (?,?,?,?,?)`,
		"referral_id",
		ref.AffiliateID, ref.Amount, ref.Status, ref.Description, dbTime(ref.Date))
}

// Get returns a referral by id.
func (r *ReferralsRepo) Get(ctx context.Context, id int64) (models.Referral, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+referralColumns+` FROM affiliate_wp_referrals WHERE referral_id = ?`), id)
	ref, err := scanReferral(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Referral{}, ErrNotFound
	}
	return ref, err
}

// GetMany returns the referrals that exist among ids, ordered by id.
func (r *ReferralsRepo) GetMany(ctx context.Context, ids []int64) ([]models.Referral, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []models.Referral{}, nil
	}
	query := fmt.Sprintf(`SELECT `+referralColumns+` FROM affiliate_wp_referrals WHERE referral_id IN (%s) ORDER BY referral_id`, placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Referral{}
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Status returns the current status of a referral.
func (r *ReferralsRepo) Status(ctx context.Context, id int64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT status FROM affiliate_wp_referrals WHERE referral_id = ?`), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// SetStatus updates a referral status.
func (r *ReferralsRepo) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE affiliate_wp_referrals SET status = ? WHERE referral_id = ?`), status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Status(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func scanReferral(row rowScanner) (models.Referral, error) {
	var ref models.Referral
	if err := row.Scan(&ref.ID, &ref.AffiliateID, &ref.Amount, &ref.Status, &ref.Description, &ref.Date); err != nil {
		return models.Referral{}, err
	}
	ref.Date = ref.Date.UTC()
	return ref, nil
}
