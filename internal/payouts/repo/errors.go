package repo

import "errors"

// ErrNotFound indicates missing entities in the payouts repositories.
var ErrNotFound = errors.New("payouts: not found")
