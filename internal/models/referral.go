package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Referral statuses.
const (
	ReferralStatusPending  = "pending"
	ReferralStatusUnpaid   = "unpaid"
	ReferralStatusPaid     = "paid"
	ReferralStatusRejected = "rejected"
)

// Referral is a commission-eligible conversion owned by one affiliate.
type Referral struct {
	ID          int64           `json:"referral_id"`
	AffiliateID int64           `json:"affiliate_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Description string          `json:"description,omitempty"`
	Date        time.Time       `json:"date"`
}
