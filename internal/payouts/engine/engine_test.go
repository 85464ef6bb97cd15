package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts/events"
	"affiliateBack/internal/payouts/repo"
)

type stubAffiliates map[int64]bool

func (s stubAffiliates) Exists(_ context.Context, id int64) (bool, error) { return s[id], nil }

type stubReferrals struct {
	refs    map[int64]*models.Referral
	updates []int64
}

func newStubReferrals(refs ...models.Referral) *stubReferrals {
	s := &stubReferrals{refs: make(map[int64]*models.Referral)}
	for i := range refs {
		r := refs[i]
		s.refs[r.ID] = &r
	}
	return s
}

func (s *stubReferrals) Get(_ context.Context, id int64) (models.Referral, error) {
	r, ok := s.refs[id]
	if !ok {
		return models.Referral{}, repo.ErrNotFound
	}
	return *r, nil
}

func (s *stubReferrals) Status(_ context.Context, id int64) (string, error) {
	r, ok := s.refs[id]
	if !ok {
		return "", repo.ErrNotFound
	}
	return r.Status, nil
}

func (s *stubReferrals) SetStatus(_ context.Context, id int64, status string) error {
	r, ok := s.refs[id]
	if !ok {
		return repo.ErrNotFound
	}
	r.Status = status
	s.updates = append(s.updates, id)
	return nil
}

type stubStore struct {
	payouts   map[int64]models.Payout
	nextID    int64
	insertErr error
	deleteErr error
}

func newStubStore() *stubStore {
	return &stubStore{payouts: make(map[int64]models.Payout), nextID: 1}
}

func (s *stubStore) Insert(_ context.Context, p models.Payout) (int64, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	p.ID = s.nextID
	s.nextID++
	p.Referrals = append([]int64(nil), p.Referrals...)
	s.payouts[p.ID] = p
	return p.ID, nil
}

func (s *stubStore) Delete(_ context.Context, id int64) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.payouts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.payouts, id)
	return nil
}

func (s *stubStore) UpdateStatus(_ context.Context, id int64, status string) error {
	p, ok := s.payouts[id]
	if !ok {
		return repo.ErrNotFound
	}
	p.Status = status
	s.payouts[id] = p
	return nil
}

func (s *stubStore) Get(_ context.Context, id int64) (models.Payout, error) {
	p, ok := s.payouts[id]
	if !ok {
		return models.Payout{}, repo.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := s.payouts[id]
	return ok, nil
}

func (s *stubStore) ReferralIDs(_ context.Context, id int64) ([]int64, error) {
	return s.payouts[id].Referrals, nil
}

func (s *stubStore) ClaimedReferrals(_ context.Context, ids []int64) (map[int64]bool, error) {
	claimed := make(map[int64]bool)
	for _, p := range s.payouts {
		for _, r := range p.Referrals {
			claimed[r] = true
		}
	}
	out := make(map[int64]bool)
	for _, id := range ids {
		if claimed[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *stubStore) List(_ context.Context, f repo.Filter) ([]models.Payout, error) {
	if f.Date.Exact == "bad" {
		return nil, models.ErrInvalidFilter
	}
	if f.Date.Exact == "boom" {
		return nil, errors.New("connection reset")
	}
	out := []models.Payout{}
	for _, p := range s.payouts {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubStore) Count(ctx context.Context, f repo.Filter) (int, error) {
	list, err := s.List(ctx, f)
	return len(list), err
}

type recorder struct{ events []events.Event }

func (r *recorder) Notify(_ context.Context, ev events.Event) { r.events = append(r.events, ev) }

type harness struct {
	engine    *Engine
	referrals *stubReferrals
	store     *stubStore
	events    *recorder
	now       time.Time
}

func ref(id, affiliateID int64, amount, status string) models.Referral {
	return models.Referral{ID: id, AffiliateID: affiliateID, Amount: decimal.RequireFromString(amount), Status: status}
}

func newHarness(t *testing.T, exclusive bool, refs ...models.Referral) *harness {
	t.Helper()
	h := &harness{
		referrals: newStubReferrals(refs...),
		store:     newStubStore(),
		events:    &recorder{},
		now:       time.Date(2024, 6, 1, 9, 30, 15, 999, time.UTC),
	}
	h.engine = New(stubAffiliates{1: true, 2: true}, h.referrals, h.store, h.events, zaptest.NewLogger(t).Sugar(), Options{
		ExclusiveReferrals: exclusive,
		Now:                func() time.Time { return h.now },
	})
	return h
}

func TestAddPayoutPreservesReferralOrder(t *testing.T) {
	h := newHarness(t, false,
		ref(1, 1, "1.00", models.ReferralStatusUnpaid),
		ref(2, 1, "2.00", models.ReferralStatusUnpaid),
		ref(3, 1, "3.00", models.ReferralStatusUnpaid),
	)
	id, err := h.engine.AddPayout(context.Background(), NewPayout{AffiliateID: 1, Referrals: []int64{3, 1, 2}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	p := h.store.payouts[id]
	if got := p.Referrals; len(got) != 3 || got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("expected referrals [3 1 2], got %v", got)
	}
	if p.Status != models.PayoutStatusPaid {
		t.Fatalf("expected default status paid, got %q", p.Status)
	}
	if want := time.Date(2024, 6, 1, 9, 30, 15, 0, time.UTC); !p.Date.Equal(want) {
		t.Fatalf("expected date %v, got %v", want, p.Date)
	}
	if len(h.referrals.updates) != 0 {
		t.Fatalf("add must not touch referral statuses, updated %v", h.referrals.updates)
	}
	if len(h.events.events) != 1 || h.events.events[0].Type != events.PayoutCreated || h.events.events[0].PayoutID != id {
		t.Fatalf("expected one created event, got %+v", h.events.events)
	}
}

func TestAddPayoutDropsForeignAndMissingReferrals(t *testing.T) {
	h := newHarness(t, false,
		ref(1, 1, "5.00", models.ReferralStatusUnpaid),
		ref(2, 2, "7.00", models.ReferralStatusUnpaid),
	)
	id, err := h.engine.AddPayout(context.Background(), NewPayout{AffiliateID: 1, Referrals: []int64{2, 1, 99}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	p := h.store.payouts[id]
	if len(p.Referrals) != 1 || p.Referrals[0] != 1 {
		t.Fatalf("expected only referral 1, got %v", p.Referrals)
	}
	if !p.Amount.Equal(decimal.RequireFromString("5")) {
		t.Fatalf("expected amount 5, got %s", p.Amount)
	}
}

func TestAddPayoutSumsAmounts(t *testing.T) {
	h := newHarness(t, false,
		ref(1, 1, "5.00", models.ReferralStatusUnpaid),
		ref(2, 1, "10.00", models.ReferralStatusUnpaid),
		ref(3, 1, "15.00", models.ReferralStatusUnpaid),
	)
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1, 2, 3}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	if got := h.store.payouts[id].Amount; !got.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected 30.00, got %s", got)
	}

	explicit := decimal.NewNullDecimal(decimal.RequireFromString("12.50"))
	id, err = h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}, Amount: explicit, PayoutMethod: "paypal", Status: models.PayoutStatusFailed})
	if err != nil {
		t.Fatalf("AddPayout explicit: %v", err)
	}
	p := h.store.payouts[id]
	if !p.Amount.Equal(explicit.Decimal) || p.PayoutMethod != "paypal" || p.Status != models.PayoutStatusFailed {
		t.Fatalf("explicit fields not kept: %+v", p)
	}
}

func TestAddPayoutValidation(t *testing.T) {
	h := newHarness(t, false, ref(1, 2, "5.00", models.ReferralStatusUnpaid))
	ctx := context.Background()

	cases := []struct {
		name string
		in   NewPayout
		want error
	}{
		{"missing affiliate", NewPayout{Referrals: []int64{1}}, models.ErrInvalidAffiliate},
		{"unknown affiliate", NewPayout{AffiliateID: 42, Referrals: []int64{1}}, models.ErrInvalidAffiliate},
		{"no referrals", NewPayout{AffiliateID: 1}, models.ErrNoReferrals},
		{"nothing resolvable", NewPayout{AffiliateID: 1, Referrals: []int64{1, 77}}, models.ErrNoReferrals},
	}
	for _, tc := range cases {
		if _, err := h.engine.AddPayout(ctx, tc.in); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if len(h.store.payouts) != 0 || len(h.events.events) != 0 {
		t.Fatalf("failed adds must not persist or notify")
	}
}

func TestAddPayoutStoreFailure(t *testing.T) {
	h := newHarness(t, false, ref(1, 1, "5.00", models.ReferralStatusUnpaid))
	h.store.insertErr = errors.New("disk full")
	_, err := h.engine.AddPayout(context.Background(), NewPayout{AffiliateID: 1, Referrals: []int64{1}})
	if !errors.Is(err, models.ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if len(h.events.events) != 0 {
		t.Fatalf("no event expected on failure")
	}
}

func TestAddPayoutExclusiveReferrals(t *testing.T) {
	h := newHarness(t, true,
		ref(1, 1, "5.00", models.ReferralStatusUnpaid),
		ref(2, 1, "6.00", models.ReferralStatusUnpaid),
	)
	ctx := context.Background()
	if _, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}}); err != nil {
		t.Fatalf("first AddPayout: %v", err)
	}
	if _, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}}); !errors.Is(err, models.ErrNoReferrals) {
		t.Fatalf("expected no referrals for claimed set, got %v", err)
	}
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1, 2}})
	if err != nil {
		t.Fatalf("partial AddPayout: %v", err)
	}
	p := h.store.payouts[id]
	if len(p.Referrals) != 1 || p.Referrals[0] != 2 || !p.Amount.Equal(decimal.RequireFromString("6")) {
		t.Fatalf("expected only referral 2 worth 6, got %+v", p)
	}
}

func TestDeletePaidPayoutRevertsPaidReferrals(t *testing.T) {
	h := newHarness(t, false,
		ref(1, 1, "5.00", models.ReferralStatusPaid),
		ref(2, 1, "5.00", models.ReferralStatusUnpaid),
		ref(3, 1, "5.00", models.ReferralStatusRejected),
		ref(4, 1, "5.00", models.ReferralStatusPaid),
	)
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1, 2, 3, 4}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	if err := h.engine.DeletePayout(ctx, models.PayoutID(id)); err != nil {
		t.Fatalf("DeletePayout: %v", err)
	}

	want := map[int64]string{1: models.ReferralStatusUnpaid, 2: models.ReferralStatusUnpaid, 3: models.ReferralStatusRejected, 4: models.ReferralStatusUnpaid}
	for id, status := range want {
		if got := h.referrals.refs[id].Status; got != status {
			t.Fatalf("referral %d: expected %s, got %s", id, status, got)
		}
	}
	if len(h.referrals.updates) != 2 {
		t.Fatalf("expected 2 reversals, got %v", h.referrals.updates)
	}
	if _, ok := h.store.payouts[id]; ok {
		t.Fatalf("payout still stored")
	}
	last := h.events.events[len(h.events.events)-1]
	if last.Type != events.PayoutDeleted || last.PayoutID != id {
		t.Fatalf("expected deleted event, got %+v", last)
	}
}

func TestDeleteFailedPayoutKeepsReferralStatuses(t *testing.T) {
	h := newHarness(t, false, ref(1, 1, "5.00", models.ReferralStatusPaid))
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}, Status: models.PayoutStatusFailed})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	p := h.store.payouts[id]
	if err := h.engine.DeletePayout(ctx, p); err != nil {
		t.Fatalf("DeletePayout: %v", err)
	}
	if h.referrals.refs[1].Status != models.ReferralStatusPaid {
		t.Fatalf("referral of a failed payout must stay paid")
	}
}

func TestDeleteMissingPayout(t *testing.T) {
	h := newHarness(t, false, ref(1, 1, "5.00", models.ReferralStatusPaid))
	ctx := context.Background()
	if err := h.engine.DeletePayout(ctx, models.PayoutID(404)); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := h.engine.DeletePayout(ctx, nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found for nil ref, got %v", err)
	}
	if len(h.referrals.updates) != 0 || len(h.events.events) != 0 {
		t.Fatalf("missing payout must not mutate referrals or notify")
	}
}

func TestDeleteFailureKeepsReversal(t *testing.T) {
	h := newHarness(t, false, ref(1, 1, "5.00", models.ReferralStatusPaid))
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	h.store.deleteErr = errors.New("lock wait timeout")
	if err := h.engine.DeletePayout(ctx, models.PayoutID(id)); !errors.Is(err, models.ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if h.referrals.refs[1].Status != models.ReferralStatusUnpaid {
		t.Fatalf("reversal is not rolled back on delete failure")
	}
}

func TestPayoutLookups(t *testing.T) {
	h := newHarness(t, false,
		ref(1, 1, "5.00", models.ReferralStatusUnpaid),
		ref(2, 1, "5.00", models.ReferralStatusUnpaid),
	)
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{2, 1}})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}

	delete(h.referrals.refs, 1)
	refs, err := h.engine.GetPayoutReferrals(ctx, id)
	if err != nil {
		t.Fatalf("GetPayoutReferrals: %v", err)
	}
	if len(refs) != 1 || refs[0].ID != 2 {
		t.Fatalf("expected only referral 2, got %+v", refs)
	}

	ids, err := h.engine.GetReferralIDs(ctx, id)
	if err != nil || len(ids) != 2 || ids[0] != 2 {
		t.Fatalf("GetReferralIDs: %v %v", ids, err)
	}
	ids, err = h.engine.GetReferralIDs(ctx, 999)
	if err != nil || ids == nil || len(ids) != 0 {
		t.Fatalf("expected empty list for unknown payout, got %v %v", ids, err)
	}

	if ok, _ := h.engine.PayoutExists(ctx, id); !ok {
		t.Fatalf("expected payout to exist")
	}
	if ok, _ := h.engine.PayoutExists(ctx, 0); ok {
		t.Fatalf("id 0 never exists")
	}
}

func TestPayoutStatusLabel(t *testing.T) {
	h := newHarness(t, false, ref(1, 1, "5.00", models.ReferralStatusUnpaid))
	ctx := context.Background()
	id, err := h.engine.AddPayout(ctx, NewPayout{AffiliateID: 1, Referrals: []int64{1}, Status: "garbage"})
	if err != nil {
		t.Fatalf("AddPayout: %v", err)
	}
	label, err := h.engine.GetPayoutStatusLabel(ctx, id)
	if err != nil || label != "Paid" {
		t.Fatalf("expected Paid, got %q %v", label, err)
	}

	if err := h.engine.SetPayoutStatus(ctx, id, models.PayoutStatusFailed); err != nil {
		t.Fatalf("SetPayoutStatus: %v", err)
	}
	label, _ = h.engine.GetPayoutStatusLabel(ctx, id)
	if label != "Failed" {
		t.Fatalf("expected Failed, got %q", label)
	}

	if _, err := h.engine.GetPayoutStatusLabel(ctx, 500); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := h.engine.SetPayoutStatus(ctx, id, "pending"); !errors.Is(err, models.ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	if err := h.engine.SetPayoutStatus(ctx, 500, models.PayoutStatusPaid); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListErrors(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	if _, err := h.engine.ListPayouts(ctx, repo.Filter{Date: repo.DateFilter{Exact: "bad"}}); !errors.Is(err, models.ErrInvalidFilter) {
		t.Fatalf("expected invalid filter, got %v", err)
	}
	if _, err := h.engine.CountPayouts(ctx, repo.Filter{Date: repo.DateFilter{Exact: "boom"}}); !errors.Is(err, models.ErrStoreFailure) {
		t.Fatalf("expected store failure, got %v", err)
	}
}
