// Package engine settles referrals into payouts and reverses settlement on delete.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts/events"
	"affiliateBack/internal/payouts/repo"
)

// Logger is the logging surface of the engine.
type Logger interface {
	Infof(string, ...interface{})
	Errorf(string, ...interface{})
}

// Affiliates checks affiliate existence.
type Affiliates interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Referrals is the referral ledger as seen by the engine.
type Referrals interface {
	Get(ctx context.Context, id int64) (models.Referral, error)
	Status(ctx context.Context, id int64) (string, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

// Store persists and queries payouts.
type Store interface {
	Insert(ctx context.Context, p models.Payout) (int64, error)
	Delete(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	Get(ctx context.Context, id int64) (models.Payout, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ReferralIDs(ctx context.Context, id int64) ([]int64, error)
	ClaimedReferrals(ctx context.Context, referralIDs []int64) (map[int64]bool, error)
	List(ctx context.Context, f repo.Filter) ([]models.Payout, error)
	Count(ctx context.Context, f repo.Filter) (int, error)
}

// Options tune engine behaviour.
type Options struct {
	// ExclusiveReferrals drops referrals already held by another payout.
	ExclusiveReferrals bool
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewPayout is the input of AddPayout.
type NewPayout struct {
	AffiliateID  int64
	Referrals    []int64
	Amount       decimal.NullDecimal
	PayoutMethod string
	Status       string
	Date         time.Time
}

// Engine implements payout settlement.
type Engine struct {
	affiliates Affiliates
	referrals  Referrals
	store      Store
	notifier   events.Notifier
	logger     Logger
	opts       Options
}

// New constructs an Engine.
func New(affiliates Affiliates, referrals Referrals, store Store, notifier events.Notifier, logger Logger, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if notifier == nil {
		notifier = events.Multi{}
	}
	return &Engine{
		affiliates: affiliates,
		referrals:  referrals,
		store:      store,
		notifier:   notifier,
		logger:     logger,
		opts:       opts,
	}
}

// AddPayout settles the given referrals of one affiliate into a new payout
// and returns its id. Referrals that are missing or owned by another
// affiliate are dropped. Referral statuses are left untouched.
func (e *Engine) AddPayout(ctx context.Context, in NewPayout) (int64, error) {
	if in.AffiliateID <= 0 {
		return 0, models.ErrInvalidAffiliate
	}
	ok, err := e.affiliates.Exists(ctx, in.AffiliateID)
	if err != nil {
		return 0, storeFailure("check affiliate", err)
	}
	if !ok {
		return 0, models.ErrInvalidAffiliate
	}
	if len(in.Referrals) == 0 {
		return 0, models.ErrNoReferrals
	}

	kept := make([]int64, 0, len(in.Referrals))
	amounts := make([]decimal.Decimal, 0, len(in.Referrals))
	for _, id := range in.Referrals {
		ref, err := e.referrals.Get(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, storeFailure("load referral", err)
		}
		if ref.AffiliateID != in.AffiliateID {
			continue
		}
		kept = append(kept, id)
		amounts = append(amounts, ref.Amount)
	}

	if e.opts.ExclusiveReferrals && len(kept) > 0 {
		claimed, err := e.store.ClaimedReferrals(ctx, kept)
		if err != nil {
			return 0, storeFailure("check claimed referrals", err)
		}
		free, freeAmounts := kept[:0], amounts[:0]
		for i, id := range kept {
			if claimed[id] {
				continue
			}
			free = append(free, id)
			freeAmounts = append(freeAmounts, amounts[i])
		}
		kept, amounts = free, freeAmounts
	}

	if len(kept) == 0 {
		return 0, models.ErrNoReferrals
	}

	p := models.Payout{
		AffiliateID:  in.AffiliateID,
		Referrals:    kept,
		Amount:       decimal.Sum(decimal.Zero, amounts...),
		PayoutMethod: in.PayoutMethod,
		Status:       in.Status,
		Date:         in.Date,
	}
	if in.Amount.Valid && !in.Amount.Decimal.IsZero() {
		p.Amount = in.Amount.Decimal
	}
	if p.Status == "" {
		p.Status = models.PayoutStatusPaid
	}
	if p.Date.IsZero() {
		p.Date = e.opts.Now()
	}
	p.Date = p.Date.UTC().Truncate(time.Second)

	id, err := e.store.Insert(ctx, p)
	if err != nil {
		return 0, storeFailure("insert payout", err)
	}

	e.logger.Infof("payout created id=%d affiliate=%d referrals=%d amount=%s", id, p.AffiliateID, len(p.Referrals), p.Amount)
	e.notifier.Notify(ctx, events.New(events.PayoutCreated, id, p.AffiliateID))
	return id, nil
}

// DeletePayout removes a payout. Deleting a paid payout first reverts its
// referrals that are still paid back to unpaid; that reversal is not undone
// if the delete itself fails.
func (e *Engine) DeletePayout(ctx context.Context, ref models.PayoutRef) error {
	if ref == nil {
		return models.ErrNotFound
	}
	p, err := e.GetPayout(ctx, ref.PayoutID())
	if err != nil {
		return err
	}

	if p.Status == models.PayoutStatusPaid {
		for _, refID := range p.Referrals {
			status, err := e.referrals.Status(ctx, refID)
			if err != nil {
				e.logger.Errorf("payout %d: read referral %d status: %v", p.ID, refID, err)
				continue
			}
			if status != models.ReferralStatusPaid {
				continue
			}
			if err := e.referrals.SetStatus(ctx, refID, models.ReferralStatusUnpaid); err != nil {
				e.logger.Errorf("payout %d: revert referral %d: %v", p.ID, refID, err)
			}
		}
	}

	if err := e.store.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.ErrNotFound
		}
		return storeFailure("delete payout", err)
	}

	e.logger.Infof("payout deleted id=%d affiliate=%d", p.ID, p.AffiliateID)
	e.notifier.Notify(ctx, events.New(events.PayoutDeleted, p.ID, p.AffiliateID))
	return nil
}

// GetPayout returns a payout by id.
func (e *Engine) GetPayout(ctx context.Context, id int64) (models.Payout, error) {
	if id <= 0 {
		return models.Payout{}, models.ErrNotFound
	}
	p, err := e.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Payout{}, models.ErrNotFound
	}
	if err != nil {
		return models.Payout{}, storeFailure("get payout", err)
	}
	return p, nil
}

// GetPayoutReferrals returns the referral records of a payout in stored
// order, skipping any that no longer exist.
func (e *Engine) GetPayoutReferrals(ctx context.Context, id int64) ([]models.Referral, error) {
	p, err := e.GetPayout(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]models.Referral, 0, len(p.Referrals))
	for _, refID := range p.Referrals {
		ref, err := e.referrals.Get(ctx, refID)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeFailure("load referral", err)
		}
		out = append(out, ref)
	}
	return out, nil
}

// GetPayoutStatusLabel returns the display label of a payout's status.
func (e *Engine) GetPayoutStatusLabel(ctx context.Context, id int64) (string, error) {
	p, err := e.GetPayout(ctx, id)
	if err != nil {
		return "", err
	}
	return models.PayoutStatusLabel(p.Status), nil
}

// SetPayoutStatus assigns paid or failed to an existing payout.
func (e *Engine) SetPayoutStatus(ctx context.Context, id int64, status string) error {
	if !models.IsValidPayoutStatus(status) {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}
	if id <= 0 {
		return models.ErrNotFound
	}
	if err := e.store.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.ErrNotFound
		}
		return storeFailure("update payout status", err)
	}
	e.logger.Infof("payout status id=%d status=%s", id, status)
	return nil
}

// ListPayouts returns the payouts matching f.
func (e *Engine) ListPayouts(ctx context.Context, f repo.Filter) ([]models.Payout, error) {
	payouts, err := e.store.List(ctx, f)
	if err != nil {
		return nil, queryFailure("list payouts", err)
	}
	return payouts, nil
}

// CountPayouts returns how many payouts match f.
func (e *Engine) CountPayouts(ctx context.Context, f repo.Filter) (int, error) {
	n, err := e.store.Count(ctx, f)
	if err != nil {
		return 0, queryFailure("count payouts", err)
	}
	return n, nil
}

// PayoutExists reports whether a payout with id is stored.
func (e *Engine) PayoutExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	ok, err := e.store.Exists(ctx, id)
	if err != nil {
		return false, storeFailure("check payout", err)
	}
	return ok, nil
}

// GetReferralIDs returns the ordered referral ids of a payout; unknown payouts yield an empty list.
func (e *Engine) GetReferralIDs(ctx context.Context, id int64) ([]int64, error) {
	ids, err := e.store.ReferralIDs(ctx, id)
	if err != nil {
		return nil, storeFailure("load payout referrals", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, models.ErrStoreFailure, err)
}

func queryFailure(op string, err error) error {
	if errors.Is(err, models.ErrInvalidFilter) {
		return err
	}
	return storeFailure(op, err)
}
