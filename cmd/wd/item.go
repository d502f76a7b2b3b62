package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/nvlong/workdesk/internal/directory"
	"github.com/nvlong/workdesk/internal/lifecycle"
	"github.com/nvlong/workdesk/internal/views"
	"gorm.io/gorm"
)

func newItemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Work-item commands",
	}

	cmd.AddCommand(newItemCreateCmd())
	cmd.AddCommand(newItemBoardCmd())
	cmd.AddCommand(newItemShowCmd())
	return cmd
}

func newItemCreateCmd() *cobra.Command {
	var (
		configPath string
		owner      string
		title      string
		category   string
		subject    string
		detail     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new work item",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, _, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			return runItemCreate(cmd, gormDB, lifecycle.CreateOpts{
				Owner:    owner,
				Category: category,
				Subject:  subject,
				Title:    title,
				Detail:   detail,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workdesk.yaml", "path to Workdesk config file")
	cmd.Flags().StringVar(&owner, "owner", "", "owner user code (required)")
	cmd.Flags().StringVar(&title, "title", "", "work item title (required)")
	cmd.Flags().StringVar(&category, "category", "", "classification category (required)")
	cmd.Flags().StringVar(&subject, "subject", "", "external subject reference")
	cmd.Flags().StringVar(&detail, "detail", "", "detail text")
	return cmd
}

func runItemCreate(cmd *cobra.Command, gormDB *gorm.DB, opts lifecycle.CreateOpts) error {
	dir := directory.NewSQL(gormDB)
	if opts.Supervisor == "" {
		manager, err := dir.DirectManagerOf(opts.Owner)
		if err != nil {
			return err
		}
		opts.Supervisor = manager
	}

	mgr := lifecycle.New(gormDB, dir)
	item, _, err := mgr.Create(opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created work item #%d (%s)\n", item.ID, item.Status)
	return nil
}

func newItemBoardCmd() *cobra.Command {
	var (
		configPath string
		actor      string
		team       bool
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "List board items for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			gormDB, cfg, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			dir := directory.NewSQL(gormDB)
			admin := false
			if team {
				if admin, err = dir.IsAdmin(actor); err != nil {
					return err
				}
			}
			rows, err := views.Board(gormDB, views.Scope{Actor: actor, TeamView: team, Admin: admin}, cfg.Board.RecentDays)
			if err != nil {
				return err
			}
			return printBoard(cmd, rows)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workdesk.yaml", "path to Workdesk config file")
	cmd.Flags().StringVar(&actor, "actor", "", "user code (required)")
	cmd.Flags().BoolVar(&team, "team", false, "supervisor team view")
	return cmd
}

func printBoard(cmd *cobra.Command, rows []views.ItemRow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRI\t%\tOWNER\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Status, r.Priority, r.ProgressPercent, r.Owner, r.Title)
	}
	return w.Flush()
}

func newItemShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a work item's ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id uint
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			gormDB, _, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			entries, err := views.Ledger(gormDB, id)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tACTOR\tKIND\t%\tCONTENT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04"), e.Actor, e.EntryKind, e.ProgressPercent, e.Content)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workdesk.yaml", "path to Workdesk config file")
	return cmd
}
