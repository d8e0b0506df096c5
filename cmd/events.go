/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/volunteer-hub/apiserver/config"
	"github.com/volunteer-hub/apiserver/internal/mq"
	"github.com/volunteer-hub/apiserver/types"
	"go.uber.org/zap"
)

// eventsCmd groups lifecycle event commands.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect request lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log lifecycle events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return fmt.Errorf("MQ_BACKEND is %q; nothing to tail", cfg.MQ.Backend)
		}
		defer queue.Close()

		logger.Info("tailing request events", zap.String("backend", cfg.MQ.Backend), zap.String("channel", cfg.MQ.Channel))
		err = queue.SubscribeRequestEvents(ctx, func(_ context.Context, event types.RequestEvent) error {
			logger.Info("request event",
				zap.String("id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Int("request_id", event.RequestID),
				zap.Int("actor_id", event.ActorID),
				zap.String("status", string(event.Status)),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
