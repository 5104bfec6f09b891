package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/songstudio/studio-api/internal/domain/admin"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/user"
	"github.com/songstudio/studio-api/internal/pkg/validator"
)

func newGrantCommand(ctx *commandContext) *cobra.Command {
	var req admin.GrantCreditsRequest

	cmd := &cobra.Command{
		Use:   "grant <email> <amount>",
		Short: "Credit a user and record the grant in the ledger",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("amount must be an integer: %w", err)
			}
			req.Email = args[0]
			req.Amount = amount
			if errs := validator.Validate(&req); errs != nil {
				return fmt.Errorf("invalid grant: %s", formatFieldErrors(errs))
			}

			b, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			reason := credit.ReasonAdminGrant
			if req.Reason != "" {
				reason = credit.Reason(req.Reason)
			}
			var meta credit.Metadata
			if req.Note != "" {
				meta = credit.Metadata{"note": req.Note}
			}
			balance, err := b.credits.Grant(cmd.Context(), req.Email, req.Amount, reason, meta)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Granted %d credits to %s (%s). New balance: %d\n",
				req.Amount, user.NormalizeEmail(req.Email), reason, balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Reason, "reason", "", "Ledger reason tag (default admin_grant)")
	cmd.Flags().StringVar(&req.Note, "note", "", "Free-form note stored in the entry metadata")
	return cmd
}

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "ledger <email>",
		Short: "Show a user's ledger, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			entries, err := b.credits.ListLedger(cmd.Context(), args[0], credit.Pagination{Limit: limit, Offset: offset})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No ledger entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
					strconv.Itoa(e.Delta),
					string(e.Reason),
					formatMetadata(e.Metadata),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"When (UTC)", "Delta", "Reason", "Metadata"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Entries to skip")
	return cmd
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <email>",
		Short: "Compare a user's balance with the sum of their ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			rec, err := b.credits.Reconcile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			status := "consistent"
			if !rec.Consistent {
				status = "DRIFT"
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Email", "Balance", "Ledger sum", "Clamped", "Entries", "Drift", "Status"},
				[][]string{{
					rec.Email,
					strconv.Itoa(rec.Balance),
					strconv.Itoa(rec.LedgerSum),
					strconv.Itoa(rec.Clamped),
					strconv.Itoa(rec.Entries),
					strconv.Itoa(rec.Drift),
					status,
				}},
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			if !rec.Consistent {
				return fmt.Errorf("balance of %s drifts from ledger by %d", rec.Email, rec.Drift)
			}
			return nil
		},
	}
}

func newDeleteUserCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-user <email>",
		Short: "Delete a user and every row they own, ledger included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete %s without --yes", user.NormalizeEmail(args[0]))
			}
			b, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			sum, err := b.accounts.DeleteAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %d songs, %d ledger entries, %d transactions, %d referrals\n",
				user.NormalizeEmail(args[0]), sum.Songs, sum.LedgerEntries, sum.Transactions, sum.Referrals)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func formatMetadata(meta credit.Metadata) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}

func formatFieldErrors(errs map[string]string) string {
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+errs[k])
	}
	return strings.Join(parts, "; ")
}
