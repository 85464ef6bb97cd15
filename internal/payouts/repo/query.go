package repo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"affiliateBack/internal/models"
)

// Sort columns accepted by Filter.OrderBy.
var orderColumns = map[string]struct{}{
	"payout_id":     {},
	"affiliate_id":  {},
	"amount":        {},
	"payout_method": {},
	"status":        {},
	"date":          {},
}

const (
	defaultOrderBy = "payout_id"
	orderAsc       = "ASC"
	orderDesc      = "DESC"
	unboundedLimit = math.MaxInt64
)

// AmountFilter restricts payouts by amount. Exact wins over the range;
// an invalid or negative Max leaves the range open at the top.
type AmountFilter struct {
	Exact decimal.NullDecimal `json:"exact"`
	Min   decimal.NullDecimal `json:"min"`
	Max   decimal.NullDecimal `json:"max"`
}

// DateFilter restricts payouts by date. Values without a time component
// are widened to the whole day.
type DateFilter struct {
	Exact string `json:"exact,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Filter is a structured payout query.
type Filter struct {
	Number       int          `json:"number"`
	Offset       int          `json:"offset"`
	PayoutIDs    []int64      `json:"payout_id,omitempty"`
	AffiliateIDs []int64      `json:"affiliate_id,omitempty"`
	Referrals    []int64      `json:"referrals,omitempty"`
	Amount       AmountFilter `json:"amount"`
	PayoutMethod string       `json:"payout_method,omitempty"`
	Status       string       `json:"status,omitempty"`
	AnyStatus    bool         `json:"any_status,omitempty"`
	Date         DateFilter   `json:"date"`
	Order        string       `json:"order"`
	OrderBy      string       `json:"orderby"`

	// ReferralPayoutIDs holds the payouts that Referrals resolved to.
	// It is filled by the store; when Referrals is set and this is empty
	// the query matches nothing.
	ReferralPayoutIDs []int64 `json:"referral_payout_ids,omitempty"`
}

// Normalize applies defaults and fallbacks so equivalent filters compare equal.
func (f Filter) Normalize() Filter {
	if f.Number < 0 {
		f.Number = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	order := strings.ToUpper(strings.TrimSpace(f.Order))
	if order == "" || order == orderDesc {
		f.Order = orderDesc
	} else {
		f.Order = orderAsc
	}

	orderBy := strings.ToLower(strings.TrimSpace(f.OrderBy))
	if _, ok := orderColumns[orderBy]; !ok {
		orderBy = defaultOrderBy
	}
	f.OrderBy = orderBy

	if f.AnyStatus {
		f.Status = ""
	} else if !models.IsValidPayoutStatus(f.Status) {
		f.Status = models.PayoutStatusPaid
	}
	return f
}

// buildWhere renders the WHERE clause (including the keyword) and its args.
func buildWhere(f Filter) (string, []any, error) {
	var (
		conditions []string
		args       []any
	)

	if len(f.PayoutIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("payout_id IN (%s)", placeholders(len(f.PayoutIDs))))
		args = append(args, idArgs(f.PayoutIDs)...)
	}

	if len(f.AffiliateIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("affiliate_id IN (%s)", placeholders(len(f.AffiliateIDs))))
		args = append(args, idArgs(f.AffiliateIDs)...)
	}

	if len(f.Referrals) > 0 {
		if len(f.ReferralPayoutIDs) == 0 {
			conditions = append(conditions, "1 = 0")
		} else {
			conditions = append(conditions, fmt.Sprintf("payout_id IN (%s)", placeholders(len(f.ReferralPayoutIDs))))
			args = append(args, idArgs(f.ReferralPayoutIDs)...)
		}
	}

	switch {
	case f.Amount.Exact.Valid:
		conditions = append(conditions, "amount = ?")
		args = append(args, f.Amount.Exact.Decimal)
	default:
		if f.Amount.Min.Valid {
			conditions = append(conditions, "amount >= ?")
			args = append(args, f.Amount.Min.Decimal)
		}
		if f.Amount.Max.Valid && !f.Amount.Max.Decimal.IsNegative() {
			conditions = append(conditions, "amount <= ?")
			args = append(args, f.Amount.Max.Decimal)
		}
	}

	if f.PayoutMethod != "" {
		conditions = append(conditions, "payout_method = ?")
		args = append(args, f.PayoutMethod)
	}

	if f.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, f.Status)
	}

	if f.Date.Exact != "" {
		day, _, err := parseFilterDate(f.Date.Exact)
		if err != nil {
			return "", nil, err
		}
		start := truncateDay(day)
		conditions = append(conditions, "date >= ?", "date < ?")
		args = append(args, start, start.AddDate(0, 0, 1))
	} else {
		if f.Date.Start != "" {
			start, hasTime, err := parseFilterDate(f.Date.Start)
			if err != nil {
				return "", nil, err
			}
			if !hasTime {
				start = truncateDay(start)
			}
			conditions = append(conditions, "date >= ?")
			args = append(args, start)
		}
		if f.Date.End != "" {
			end, hasTime, err := parseFilterDate(f.Date.End)
			if err != nil {
				return "", nil, err
			}
			if !hasTime {
				end = truncateDay(end).Add(24*time.Hour - time.Second)
			}
			conditions = append(conditions, "date <= ?")
			args = append(args, end)
		}
	}

	if len(conditions) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args, nil
}

// buildOrder renders ORDER BY with payout_id as the tie-breaker.
func buildOrder(f Filter) string {
	if f.OrderBy == defaultOrderBy {
		return fmt.Sprintf(" ORDER BY payout_id %s", f.Order)
	}
	return fmt.Sprintf(" ORDER BY %s %s, payout_id %s", f.OrderBy, f.Order, f.Order)
}

func buildLimit(f Filter) (string, []any) {
	limit := int64(unboundedLimit)
	if f.Number > 0 {
		limit = int64(f.Number)
	}
	return " LIMIT ? OFFSET ?", []any{limit, int64(f.Offset)}
}

var dateLayouts = []struct {
	layout  string
	hasTime bool
}{
	{time.RFC3339, true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02 15:04", true},
	{"2006-01-02T15:04:05", true},
	{"2006-01-02", false},
}

// parseFilterDate parses a filter date in UTC and reports whether it carried a time of day.
func parseFilterDate(value string) (time.Time, bool, error) {
	value = strings.TrimSpace(value)
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l.layout, value, time.UTC); err == nil {
			return t.UTC(), l.hasTime, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("%w: date %q", models.ErrInvalidFilter, value)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
