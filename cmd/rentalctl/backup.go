package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"rental-service/internal/app"
	"rental-service/internal/backup"
	"rental-service/internal/model"

	"github.com/spf13/cobra"
)

func backupCmd(open appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, prune and restore backups",
	}
	cmd.AddCommand(backupCreateCmd(open), backupListCmd(open), backupCleanupCmd(open), backupRestoreCmd(open))
	return cmd
}

func backupCreateCmd(open appFactory) *cobra.Command {
	var (
		noFiles     bool
		description string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Write a new backup archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				res, err := a.Backups.Create(ctx, backup.CreateOptions{
					IncludeFiles: !noFiles,
					Description:  description,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", res.FileName, res.SizeText)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noFiles, "no-files", false, "skip the uploads directory")
	cmd.Flags().StringVar(&description, "description", backup.DefaultDescription, "text stored in the archive README")
	return cmd
}

func backupListCmd(open appFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backup archives, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				l, err := a.Backups.List(ctx)
				if err != nil {
					return err
				}
				now := model.Now()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "FILE\tSIZE\tMODIFIED")
				for _, b := range l.Backups {
					fmt.Fprintf(w, "%s\t%s\t%s\n", b.FileName, b.SizeText, since(b.ModifiedAt, now))
				}
				return w.Flush()
			})
		},
	}
}

func backupCleanupCmd(open appFactory) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete archives older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if days == 0 {
					days = a.Backups.RetentionDays()
				}
				res, err := a.Backups.Cleanup(ctx, days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d archives older than %d days\n", res.DeletedCount, res.RetentionDays)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days, defaults to BACKUP_RETENTION_DAYS")
	return cmd
}

func backupRestoreCmd(open appFactory) *cobra.Command {
	var files bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every table with the content of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				res, err := a.Backups.Restore(ctx, args[0], backup.RestoreOptions{Files: files})
				if err != nil {
					return err
				}
				s := res.Metadata.Stats
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %s: %d rooms, %d tenants, %d contracts, %d payments, %d notes, %d files\n",
					res.FileName, s.Rooms, s.Tenants, s.Contracts, s.Payments, s.Notes, res.Files)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&files, "files", false, "also extract uploads into the uploads directory")
	return cmd
}
