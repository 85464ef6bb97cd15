// Package events carries payout lifecycle notifications to listeners.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging surface used by notifiers.
type Logger interface {
	Infof(string, ...interface{})
	Errorf(string, ...interface{})
}

// Event types.
const (
	PayoutCreated = "payout_created"
	PayoutDeleted = "payout_deleted"
)

// Event describes a payout lifecycle change.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	PayoutID    int64     `json:"payout_id"`
	AffiliateID int64     `json:"affiliate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// New builds an event with a fresh id.
func New(eventType string, payoutID, affiliateID int64) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		PayoutID:    payoutID,
		AffiliateID: affiliateID,
		OccurredAt:  time.Now().UTC(),
	}
}

// Notifier delivers events. Delivery is fire-and-forget; Notify never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}
