package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"affiliateBack/internal/models"
	"affiliateBack/internal/payouts"
	"affiliateBack/internal/payouts/engine"
)

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create payout and ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return payouts.Migrate(cmd.Context(), a.deps)
		},
	}
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Settle referrals of an affiliate into a new payout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			in := engine.NewPayout{}
			in.AffiliateID, _ = fs.GetInt64("affiliate")
			in.Referrals, _ = fs.GetInt64Slice("referrals")
			in.PayoutMethod, _ = fs.GetString("method")
			in.Status, _ = fs.GetString("status")

			amount, err := decimalFlag(fs, "amount")
			if err != nil {
				return err
			}
			in.Amount = amount

			if raw, _ := fs.GetString("date"); raw != "" {
				in.Date, err = parseDateArg(raw)
				if err != nil {
					return err
				}
			}

			id, err := a.module.Engine.AddPayout(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.Int64("affiliate", 0, "affiliate id")
	fs.Int64Slice("referrals", nil, "referral ids")
	fs.String("amount", "", "payout amount; defaults to the sum of the referrals")
	fs.String("method", "", "payout method")
	fs.String("status", "", "paid or failed")
	fs.String("date", "", "payout date; defaults to now")
	return cmd
}

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := a.module.Engine.GetPayout(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), p)
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a payout, reverting its paid referrals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.module.Engine.DeletePayout(cmd.Context(), models.PayoutID(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "payout %d deleted\n", id)
			return nil
		},
	}
}

func labelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label ID",
		Short: "Print the status label of a payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			label, err := a.module.Engine.GetPayoutStatusLabel(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
}

func referralsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referrals ID",
		Short: "List the referrals of a payout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if onlyIDs, _ := cmd.Flags().GetBool("ids"); onlyIDs {
				ids, err := a.module.Engine.GetReferralIDs(cmd.Context(), id)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), ids)
			}
			refs, err := a.module.Engine.GetPayoutReferrals(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), refs)
		},
	}
	cmd.Flags().Bool("ids", false, "print referral ids only")
	return cmd
}

func setStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status ID STATUS",
		Short: "Mark a payout paid or failed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.module.Engine.SetPayoutStatus(cmd.Context(), id, strings.ToLower(args[1]))
		},
	}
}

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payouts matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			list, err := a.module.Engine.ListPayouts(cmd.Context(), f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), list)
		},
	}
	addFilterFlags(cmd.Flags())
	return cmd
}

func countCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count payouts matching a filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd.Flags())
			if err != nil {
				return err
			}
			n, err := a.module.Engine.CountPayouts(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	addFilterFlags(cmd.Flags())
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid payout id %q", models.ErrNotFound, raw)
	}
	return id, nil
}

var dateArgLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDateArg(raw string) (time.Time, error) {
	for _, layout := range dateArgLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
