package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/nvlong/workdesk/internal/notify"
	"github.com/nvlong/workdesk/internal/notify/discord"
	"github.com/nvlong/workdesk/internal/notify/slack"
	"github.com/nvlong/workdesk/internal/server"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Workdesk API server",
		Long:  "Starts the JSON API plus the scheduled activity digest. Shuts down gracefully on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workdesk.yaml", "path to Workdesk config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server port from config")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	gormDB, cfg, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	var notifiers []notify.Notifier
	if cfg.Slack.BotToken != "" {
		sl, err := slack.New(slack.Opts{BotToken: cfg.Slack.BotToken, ChannelID: cfg.Slack.ChannelID})
		if err != nil {
			return fmt.Errorf("slack notifier: %w", err)
		}
		notifiers = append(notifiers, sl)
	}
	if cfg.Discord.BotToken != "" {
		dc, err := discord.New(discord.Opts{BotToken: cfg.Discord.BotToken, ChannelID: cfg.Discord.ChannelID})
		if err != nil {
			return fmt.Errorf("discord notifier: %w", err)
		}
		notifiers = append(notifiers, dc)
	}

	dispatcher := notify.NewDispatcher(notify.LogRewards{}, notify.LogAudits{}, notifiers...)
	defer dispatcher.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Digest.Cron != "" {
		c, err := startDigestCron(ctx, gormDB, dispatcher, cfg.Digest.Cron)
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	if port <= 0 {
		port = cfg.Server.Port
	}
	return server.Start(ctx, server.StartOpts{
		DB:          gormDB,
		Port:        port,
		Out:         cmd.OutOrStdout(),
		Dispatcher:  dispatcher,
		RecentDays:  cfg.Board.RecentDays,
		PollMinutes: cfg.Board.PollMinutes,
	})
}

// startDigestCron schedules the daily activity digest.
func startDigestCron(ctx context.Context, gormDB *gorm.DB, dispatcher *notify.Dispatcher, expr string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(expr, func() {
		notice, err := notify.BuildDailyDigest(gormDB)
		if err != nil {
			log.Printf("digest: %v", err)
			return
		}
		if notice == nil {
			return
		}
		dispatcher.Announce(ctx, *notice)
	})
	if err != nil {
		return nil, fmt.Errorf("digest cron %q: %w", expr, err)
	}
	c.Start()
	return c, nil
}
