package models

import (
	"errors"
)

var (
	ErrInvalidAffiliate = errors.New("models: invalid affiliate")
	ErrNoReferrals      = errors.New("models: no referrals for payout")
	ErrNotFound         = errors.New("models: payout not found")
	ErrStoreFailure     = errors.New("models: payout store failure")
	ErrInvalidFilter    = errors.New("models: invalid payout filter")
	ErrInvalidStatus    = errors.New("models: invalid payout status")
)
