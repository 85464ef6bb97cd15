package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payout statuses.
const (
	PayoutStatusPaid   = "paid"
	PayoutStatusFailed = "failed"
)

// Payout is a settlement record bundling referrals of one affiliate.
type Payout struct {
	ID           int64           `json:"payout_id"`
	AffiliateID  int64           `json:"affiliate_id"`
	Referrals    []int64         `json:"referrals"`
	Amount       decimal.Decimal `json:"amount"`
	PayoutMethod string          `json:"payout_method"`
	Status       string          `json:"status"`
	Date         time.Time       `json:"date"`
}

// PayoutRef is anything that resolves to a payout identifier.
type PayoutRef interface {
	PayoutID() int64
}

// PayoutID is a bare payout identifier usable as a PayoutRef.
type PayoutID int64

func (id PayoutID) PayoutID() int64 { return int64(id) }

func (p Payout) PayoutID() int64 { return p.ID }

// IsValidPayoutStatus reports whether status is one of the known payout statuses.
func IsValidPayoutStatus(status string) bool {
	return status == PayoutStatusPaid || status == PayoutStatusFailed
}

var payoutStatusLabels = map[string]string{
	PayoutStatusPaid:   "Paid",
	PayoutStatusFailed: "Failed",
}

// PayoutStatusLabel returns the display label for a payout status.
// Unknown statuses are labelled as paid.
func PayoutStatusLabel(status string) string {
	if label, ok := payoutStatusLabels[status]; ok {
		return label
	}
	return payoutStatusLabels[PayoutStatusPaid]
}
