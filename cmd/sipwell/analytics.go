package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

func analyticsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show intake reports",
	}
	cmd.AddCommand(
		reportCmd(c, "weekly", "Totals of the last seven days", func(a *app, ctx context.Context) (json.RawMessage, error) {
			return joinEntries(a.hydration.Weekly(ctx))
		}),
		reportCmd(c, "monthly", "Totals of the last thirty days", func(a *app, ctx context.Context) (json.RawMessage, error) {
			return joinEntries(a.hydration.Monthly(ctx))
		}),
		reportCmd(c, "streak", "Consecutive days the goal was reached", func(a *app, ctx context.Context) (json.RawMessage, error) {
			return a.hydration.Streak(ctx)
		}),
		reportCmd(c, "score", "Today's hydration score", func(a *app, ctx context.Context) (json.RawMessage, error) {
			return a.hydration.HydrationScore(ctx)
		}),
		reportCmd(c, "export", "Export all data", func(a *app, ctx context.Context) (json.RawMessage, error) {
			return a.hydration.Export(ctx)
		}),
	)
	return cmd
}

func reportCmd(c *cli, name, short string, fetch func(*app, context.Context) (json.RawMessage, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			raw, err := fetch(a, cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
}

func joinEntries(entries []json.RawMessage, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}
