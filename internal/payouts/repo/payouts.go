package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/constraints"

	"affiliateBack/internal/models"
)

const payoutColumns = `payout_id, affiliate_id, amount, payout_method, status, date`

// PayoutsRepo handles the payout table and its ordered referral list.
type PayoutsRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewPayoutsRepo creates repo.
func NewPayoutsRepo(db *sql.DB, dialect Dialect) *PayoutsRepo {
	return &PayoutsRepo{db: db, dialect: dialect}
}

// Create inserts a payout together with its referral list.
func (r *PayoutsRepo) Create(ctx context.Context, p models.Payout) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := r.dialect.insertID(ctx, tx,
		`INSERT INTO affiliate_wp_payouts (affiliate_id, amount, payout_method, status, date) VALUES (?,?,?,?,?)`,
		"payout_id",
		p.AffiliateID, p.Amount, p.PayoutMethod, p.Status, dbTime(p.Date))
	if err != nil {
		return 0, fmt.Errorf("insert payout: %w", err)
	}

	insertRef := r.dialect.Rebind(`INSERT INTO affiliate_wp_payout_referrals (payout_id, position, referral_id) VALUES (?,?,?)`)
	for pos, refID := range p.Referrals {
		if _, err := tx.ExecContext(ctx, insertRef, id, pos, refID); err != nil {
			return 0, fmt.Errorf("insert payout referral: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns a payout with its referral list.
func (r *PayoutsRepo) Get(ctx context.Context, id int64) (models.Payout, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+payoutColumns+` FROM affiliate_wp_payouts WHERE payout_id = ?`), id)
	p, err := scanPayout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Payout{}, ErrNotFound
	}
	if err != nil {
		return models.Payout{}, err
	}
	refs, err := r.ReferralIDs(ctx, id)
	if err != nil {
		return models.Payout{}, err
	}
	p.Referrals = refs
	return p, nil
}

// Exists reports whether a payout row is present.
func (r *PayoutsRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM affiliate_wp_payouts WHERE payout_id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes a payout and its referral list.
func (r *PayoutsRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM affiliate_wp_payout_referrals WHERE payout_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM affiliate_wp_payouts WHERE payout_id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// UpdateStatus sets the payout status.
func (r *PayoutsRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE affiliate_wp_payouts SET status = ? WHERE payout_id = ?`), status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero when the value is unchanged.
		ok, err := r.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
	}
	return nil
}

// ReferralIDs returns the referral list of a payout in stored order.
func (r *PayoutsRepo) ReferralIDs(ctx context.Context, payoutID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT referral_id FROM affiliate_wp_payout_referrals WHERE payout_id = ? ORDER BY position`), payoutID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PayoutsByReferral maps each referral to the payouts whose lists contain it.
// Referrals that belong to no payout are absent from the result.
func (r *PayoutsRepo) PayoutsByReferral(ctx context.Context, referralIDs []int64) (map[int64][]int64, error) {
	referralIDs = uniqueIDs(referralIDs)
	out := make(map[int64][]int64)
	if len(referralIDs) == 0 {
		return out, nil
	}
	query := fmt.Sprintf(`SELECT referral_id, payout_id FROM affiliate_wp_payout_referrals WHERE referral_id IN (%s) ORDER BY referral_id, payout_id`, placeholders(len(referralIDs)))
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), idArgs(referralIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var refID, payoutID int64
		if err := rows.Scan(&refID, &payoutID); err != nil {
			return nil, err
		}
		out[refID] = append(out[refID], payoutID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for refID, ids := range out {
		out[refID] = uniqueIDs(ids)
	}
	return out, nil
}

// PayoutIDsForAffiliate returns the payouts of affiliateID whose lists contain any of referralIDs.
func (r *PayoutsRepo) PayoutIDsForAffiliate(ctx context.Context, affiliateID int64, referralIDs []int64) ([]int64, error) {
	referralIDs = uniqueIDs(referralIDs)
	if len(referralIDs) == 0 {
		return []int64{}, nil
	}
	query := fmt.Sprintf(`SELECT DISTINCT pr.payout_id
		FROM affiliate_wp_payout_referrals pr
		JOIN affiliate_wp_payouts p ON p.payout_id = pr.payout_id
		WHERE p.affiliate_id = ? AND pr.referral_id IN (%s)
		ORDER BY pr.payout_id`, placeholders(len(referralIDs)))
	args := append([]any{affiliateID}, idArgs(referralIDs)...)
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns payouts matching the filter, each with its referral list.
func (r *PayoutsRepo) List(ctx context.Context, f Filter) ([]models.Payout, error) {
	f = f.Normalize()
	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}
	limit, limitArgs := buildLimit(f)
	query := `SELECT ` + payoutColumns + ` FROM affiliate_wp_payouts` + where + buildOrder(f) + limit
	args = append(args, limitArgs...)

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	payouts := []models.Payout{}
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := r.attachReferrals(ctx, payouts); err != nil {
		return nil, err
	}
	return payouts, nil
}

// Count returns how many payouts match the filter, ignoring paging.
func (r *PayoutsRepo) Count(ctx context.Context, f Filter) (int, error) {
	f = f.Normalize()
	where, args, err := buildWhere(f)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM affiliate_wp_payouts`+where), args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PayoutsRepo) attachReferrals(ctx context.Context, payouts []models.Payout) error {
	if len(payouts) == 0 {
		return nil
	}
	ids := make([]int64, len(payouts))
	for i, p := range payouts {
		ids[i] = p.ID
	}
	query := fmt.Sprintf(`SELECT payout_id, referral_id FROM affiliate_wp_payout_referrals WHERE payout_id IN (%s) ORDER BY payout_id, position`, placeholders(len(ids)))
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), idArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	lists := make(map[int64][]int64, len(payouts))
	for rows.Next() {
		var payoutID, refID int64
		if err := rows.Scan(&payoutID, &refID); err != nil {
			return err
		}
		lists[payoutID] = append(lists[payoutID], refID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range payouts {
		refs := lists[payouts[i].ID]
		if refs == nil {
			refs = []int64{}
		}
		payouts[i].Referrals = refs
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayout(row rowScanner) (models.Payout, error) {
	var p models.Payout
	if err := row.Scan(&p.ID, &p.AffiliateID, &p.Amount, &p.PayoutMethod, &p.Status, &p.Date); err != nil {
		return models.Payout{}, err
	}
	p.Date = p.Date.UTC()
	return p, nil
}

// dbTime keeps stored datetimes comparable across drivers.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs[T constraints.Integer](ids []T) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}
	return args
}

// uniqueIDs returns the ids sorted ascending without duplicates.
func uniqueIDs[T constraints.Integer](ids []T) []T {
	if len(ids) == 0 {
		return ids
	}
	out := make([]T, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
