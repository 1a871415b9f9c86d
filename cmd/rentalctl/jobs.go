package main

import (
	"context"
	"fmt"
	"time"

	"rental-service/internal/app"
	"rental-service/internal/model"

	"github.com/spf13/cobra"
)

func paymentsCmd(open appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Billing jobs",
	}
	cmd.AddCommand(bulkCreateCmd(open), markOverdueCmd(open))
	return cmd
}

func bulkCreateCmd(open appFactory) *cobra.Command {
	var (
		month, year int
		rooms       []uint
	)
	cmd := &cobra.Command{
		Use:   "bulk-create",
		Short: "Bill every active contract for one month",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if month == 0 || year == 0 {
					now := model.Now().In(a.Location)
					month, year = int(now.Month()), now.Year()
				}
				res, err := a.Services.Payments.BulkCreate(ctx, month, year, rooms)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created %d payments for %02d/%d, %d errors\n", res.Created, month, year, res.Errors)
				for _, e := range res.ErrorDetails {
					fmt.Fprintf(out, "  %s (%s): %s\n", e.ContractNumber, e.Room, e.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "billing month, defaults to the current month")
	cmd.Flags().IntVar(&year, "year", 0, "billing year, defaults to the current year")
	cmd.Flags().UintSliceVar(&rooms, "rooms", nil, "limit billing to these room IDs")
	return cmd
}

func markOverdueCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-overdue",
		Short: "Flag pending payments past their due date as overdue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				n, err := a.Services.Payments.MarkOverdue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Marked %d payments overdue\n", n)
				return nil
			})
		},
	}
}

func contractsCmd(open appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "Contract jobs",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "expire",
		Short: "Expire active contracts past their end date and release their rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				n, err := a.Services.Contracts.ExpireOverdue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Expired %d contracts\n", n)
				return nil
			})
		},
	})
	return cmd
}

func notifyCmd(open appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send Discord reminders",
	}

	var dueDays int
	overdue := &cobra.Command{
		Use:   "overdue",
		Short: "Remind about overdue payments and payments due soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				payments, err := a.Services.Payments.FindOverdue(ctx)
				if err != nil {
					return err
				}
				soon, err := a.Services.Payments.FindDueWithin(ctx, dueDays)
				if err != nil {
					return err
				}
				payments = append(payments, soon...)
				if len(payments) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No outstanding payments")
					return nil
				}
				if err := a.Notifier.PaymentReminder(ctx, payments); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reminded about %d payments\n", len(payments))
				return nil
			})
		},
	}
	overdue.Flags().IntVar(&dueDays, "days", 3, "also include payments due within this many days")

	var expiryDays int
	expiring := &cobra.Command{
		Use:   "expiring",
		Short: "Warn about contracts ending soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				contracts, err := a.Services.Contracts.FindExpiringWithin(ctx, expiryDays)
				if err != nil {
					return err
				}
				if len(contracts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No contracts expiring")
					return nil
				}
				if err := a.Notifier.ContractExpiry(ctx, contracts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Warned about %d contracts\n", len(contracts))
				return nil
			})
		},
	}
	expiring.Flags().IntVar(&expiryDays, "days", model.ExpiringSoonDays, "look-ahead window in days")

	cmd.AddCommand(overdue, expiring)
	return cmd
}

// since formats how long ago t was, for listings
func since(t, now time.Time) string {
	d := now.Sub(t).Round(time.Minute)
	if d < time.Minute {
		return "just now"
	}
	return d.String() + " ago"
}
