// Package store is the payout store: persistence through the SQL repository,
// query results cached per generation, and the referral to payout lookup.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts/cache"
	"affiliateBack/internal/payouts/repo"
)

// Logger is the logging surface the store needs.
type Logger interface {
	Infof(string, ...interface{})
	Errorf(string, ...interface{})
}

// ReferralLedger reads referral records in bulk.
type ReferralLedger interface {
	GetMany(ctx context.Context, ids []int64) ([]models.Referral, error)
}

// Store owns payout persistence and the query cache.
type Store struct {
	payouts *repo.PayoutsRepo
	ledger  ReferralLedger
	cache   cache.Cache
	ttl     time.Duration
	logger  Logger
}

// New creates a payout store.
func New(payouts *repo.PayoutsRepo, ledger ReferralLedger, c cache.Cache, ttl time.Duration, logger Logger) *Store {
	return &Store{payouts: payouts, ledger: ledger, cache: c, ttl: ttl, logger: logger}
}

// Insert persists a payout and invalidates cached queries.
func (s *Store) Insert(ctx context.Context, p models.Payout) (int64, error) {
	id, err := s.payouts.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	return id, nil
}

// Delete removes a payout and invalidates cached queries.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.payouts.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateStatus changes the payout status and invalidates cached queries.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	if err := s.payouts.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Get returns a payout by id.
func (s *Store) Get(ctx context.Context, id int64) (models.Payout, error) {
	if id <= 0 {
		return models.Payout{}, repo.ErrNotFound
	}
	return s.payouts.Get(ctx, id)
}

// Exists reports whether the payout is stored.
func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	return s.payouts.Exists(ctx, id)
}

// ReferralIDs returns the ordered referral list of a payout.
func (s *Store) ReferralIDs(ctx context.Context, id int64) ([]int64, error) {
	if id <= 0 {
		return []int64{}, nil
	}
	return s.payouts.ReferralIDs(ctx, id)
}

// ClaimedReferrals returns which of the referrals already belong to a payout.
func (s *Store) ClaimedReferrals(ctx context.Context, referralIDs []int64) (map[int64]bool, error) {
	byRef, err := s.payouts.PayoutsByReferral(ctx, referralIDs)
	if err != nil {
		return nil, err
	}
	claimed := make(map[int64]bool, len(byRef))
	for refID := range byRef {
		claimed[refID] = true
	}
	return claimed, nil
}

// GetPayouts returns the matching page, or only the total when countOnly is set.
func (s *Store) GetPayouts(ctx context.Context, f repo.Filter, countOnly bool) ([]models.Payout, int, error) {
	if countOnly {
		n, err := s.Count(ctx, f)
		return nil, n, err
	}
	payouts, err := s.List(ctx, f)
	return payouts, len(payouts), err
}

// List returns the payouts matching f.
func (s *Store) List(ctx context.Context, f repo.Filter) ([]models.Payout, error) {
	f, err := s.resolve(ctx, f)
	if err != nil {
		return nil, err
	}
	var payouts []models.Payout
	err = s.cached(ctx, cache.KindList, f, &payouts, func() (any, error) {
		return s.payouts.List(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return payouts, nil
}

// Count returns how many payouts match f, ignoring paging.
func (s *Store) Count(ctx context.Context, f repo.Filter) (int, error) {
	f, err := s.resolve(ctx, f)
	if err != nil {
		return 0, err
	}
	// paging and order do not change a count
	f.Number, f.Offset, f.Order, f.OrderBy = 0, 0, "", ""
	var n int
	err = s.cached(ctx, cache.KindCount, f, &n, func() (any, error) {
		return s.payouts.Count(ctx, f)
	})
	return n, err
}

// PayoutIDsForReferrals returns the de-duplicated payouts that hold any of the
// referrals. With a non-empty requiredStatus only referrals in that status count.
func (s *Store) PayoutIDsForReferrals(ctx context.Context, referralIDs []int64, requiredStatus string) ([]int64, error) {
	byAffiliate, err := s.AffiliateReferrals(ctx, referralIDs, requiredStatus)
	if err != nil {
		return nil, err
	}
	return s.PayoutIDsByAffiliates(ctx, byAffiliate)
}

// AffiliateReferrals groups existing referrals by owning affiliate.
func (s *Store) AffiliateReferrals(ctx context.Context, referralIDs []int64, requiredStatus string) (map[int64][]int64, error) {
	out := make(map[int64][]int64)
	if len(referralIDs) == 0 {
		return out, nil
	}
	refs, err := s.ledger.GetMany(ctx, referralIDs)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if requiredStatus != "" && ref.Status != requiredStatus {
			continue
		}
		out[ref.AffiliateID] = append(out[ref.AffiliateID], ref.ID)
	}
	return out, nil
}

// PayoutIDsByAffiliates returns the payouts of each affiliate that hold its referrals.
func (s *Store) PayoutIDsByAffiliates(ctx context.Context, byAffiliate map[int64][]int64) ([]int64, error) {
	seen := make(map[int64]struct{})
	for affiliateID, referralIDs := range byAffiliate {
		ids, err := s.payouts.PayoutIDsForAffiliate(ctx, affiliateID, referralIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) resolve(ctx context.Context, f repo.Filter) (repo.Filter, error) {
	f = f.Normalize()
	f.ReferralPayoutIDs = nil
	if len(f.Referrals) == 0 {
		return f, nil
	}
	ids, err := s.PayoutIDsForReferrals(ctx, f.Referrals, models.ReferralStatusPaid)
	if err != nil {
		return repo.Filter{}, err
	}
	f.ReferralPayoutIDs = ids
	return f, nil
}

// cached decodes a stored result into dst or loads, stores and decodes it.
// Cache failures degrade to an uncached read.
func (s *Store) cached(ctx context.Context, kind string, f repo.Filter, dst any, load func() (any, error)) error {
	key := ""
	gen, err := s.cache.Generation(ctx)
	if err == nil {
		key, err = cache.Key(gen, kind, f)
	}
	if err != nil {
		s.logger.Errorf("payouts cache unavailable: %v", err)
	}

	if key != "" {
		payload, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Errorf("payouts cache get %s: %v", key, err)
		} else if ok {
			decodeErr := json.Unmarshal(payload, dst)
			if decodeErr == nil {
				return nil
			}
			s.logger.Errorf("payouts cache decode %s: %v", key, decodeErr)
		}
	}

	value, err := load()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode payouts result: %w", err)
	}
	if key != "" {
		if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
			s.logger.Errorf("payouts cache set %s: %v", key, err)
		}
	}
	return json.Unmarshal(payload, dst)
}

func (s *Store) invalidate(ctx context.Context) {
	if _, err := s.cache.Bump(ctx); err != nil {
		s.logger.Errorf("payouts cache bump: %v", err)
	}
}

// IsNotFound reports whether err is the repository's missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}
