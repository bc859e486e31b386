package main

import (
	"github.com/sipwell/sipwell-client/internal/hydration"
	"github.com/spf13/cobra"
)

func reminderCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Manage drink reminders",
	}
	cmd.AddCommand(reminderShowCmd(c), reminderSetCmd(c), reminderPauseCmd(c), reminderResumeCmd(c), reminderSleepCmd(c))
	return cmd
}

func reminderShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the reminder settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			raw, err := a.hydration.Reminder(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
}

func reminderSetCmd(c *cli) *cobra.Command {
	settings := hydration.DefaultReminderSettings()
	var create bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or change the reminder settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			update := a.hydration.UpdateReminder
			if create {
				update = a.hydration.CreateReminder
			}
			raw, err := update(cmd.Context(), settings)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the reminder instead of updating it")
	cmd.Flags().IntVar(&settings.Interval, "interval", settings.Interval, "Minutes between reminders")
	cmd.Flags().StringVar(&settings.StartTime, "start", settings.StartTime, "First reminder of the day (HH:MM)")
	cmd.Flags().StringVar(&settings.EndTime, "end", settings.EndTime, "Last reminder of the day (HH:MM)")
	cmd.Flags().StringVar(&settings.NotificationMessage, "message", "", "Notification text")
	return cmd
}

func reminderPauseCmd(c *cli) *cobra.Command {
	var start, end string
	cmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause the reminders, optionally only between two times",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			raw, err := a.hydration.PauseReminder(cmd.Context(), true, start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
	cmd.Flags().StringVar(&start, "from", "", "Start of the pause")
	cmd.Flags().StringVar(&end, "until", "", "End of the pause")
	return cmd
}

func reminderResumeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume paused reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			raw, err := a.hydration.PauseReminder(cmd.Context(), false, "", "")
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
}

func reminderSleepCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sleep",
		Short: "Toggle the sleep mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			raw, err := a.hydration.ToggleSleepMode(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, raw)
		},
	}
}
