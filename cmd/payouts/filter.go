package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts/repo"
)

const statusAny = "any"

func addFilterFlags(fs *pflag.FlagSet) {
	fs.Int64Slice("affiliate", nil, "affiliate ids")
	fs.Int64Slice("payout", nil, "payout ids")
	fs.Int64Slice("referrals", nil, "referral ids; only paid referrals match")
	fs.String("amount", "", "exact amount")
	fs.String("min", "", "minimum amount")
	fs.String("max", "", "maximum amount; negative means no limit")
	fs.String("method", "", "payout method")
	fs.String("status", "", "paid, failed or any")
	fs.String("date", "", "exact date (YYYY-MM-DD)")
	fs.String("start", "", "start date or datetime")
	fs.String("end", "", "end date or datetime")
	fs.Int("number", 20, "page size; 0 or less returns everything")
	fs.Int("offset", 0, "rows to skip")
	fs.String("order", "DESC", "ASC or DESC")
	fs.String("orderby", "payout_id", "sort column")
}

func filterFromFlags(fs *pflag.FlagSet) (repo.Filter, error) {
	var (
		f   repo.Filter
		err error
	)
	if f.AffiliateIDs, err = fs.GetInt64Slice("affiliate"); err != nil {
		return f, err
	}
	if f.PayoutIDs, err = fs.GetInt64Slice("payout"); err != nil {
		return f, err
	}
	if f.Referrals, err = fs.GetInt64Slice("referrals"); err != nil {
		return f, err
	}
	if f.Amount.Exact, err = decimalFlag(fs, "amount"); err != nil {
		return f, err
	}
	if f.Amount.Min, err = decimalFlag(fs, "min"); err != nil {
		return f, err
	}
	if f.Amount.Max, err = decimalFlag(fs, "max"); err != nil {
		return f, err
	}

	f.PayoutMethod, _ = fs.GetString("method")
	status, _ := fs.GetString("status")
	if strings.EqualFold(status, statusAny) {
		f.AnyStatus = true
	} else {
		f.Status = strings.ToLower(status)
	}

	f.Date.Exact, _ = fs.GetString("date")
	f.Date.Start, _ = fs.GetString("start")
	f.Date.End, _ = fs.GetString("end")
	f.Number, _ = fs.GetInt("number")
	f.Offset, _ = fs.GetInt("offset")
	f.Order, _ = fs.GetString("order")
	f.OrderBy, _ = fs.GetString("orderby")
	return f, nil
}

func decimalFlag(fs *pflag.FlagSet, name string) (decimal.NullDecimal, error) {
	raw, err := fs.GetString(name)
	if err != nil || strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, err
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: --%s %q", models.ErrInvalidFilter, name, raw)
	}
	return decimal.NewNullDecimal(d), nil
}
