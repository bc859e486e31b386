package main

import (
	"fmt"
	"strconv"

	"github.com/sipwell/sipwell-client/internal/hydration"
	"github.com/spf13/cobra"
)

func waterCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "water",
		Short: "Log and list water intake",
	}
	cmd.AddCommand(waterAddCmd(c), waterListCmd(c), waterUpdateCmd(c), waterDeleteCmd(c))
	return cmd
}

func parseAmount(value string) (float64, error) {
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("the amount must be a positive number of ml, got %q", value)
	}
	return amount, nil
}

func printLog(cmd *cobra.Command, log *hydration.WaterLog) {
	if log == nil {
		cmd.Println("Done")
		return
	}
	cmd.Printf("%s  %6.0f ml  %s\n", log.ID, log.AmountMl, log.Timestamp)
}

func waterAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add <ml>",
		Short: "Log a drink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}
			a, err := c.getApp()
			if err != nil {
				return err
			}
			log, err := a.hydration.AddWaterLog(cmd.Context(), amount)
			if err != nil {
				return err
			}
			printLog(cmd, log)
			return nil
		},
	}
}

func waterListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List today's drinks and the progress towards the daily goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			logs, err := a.hydration.DailyWater(cmd.Context())
			if err != nil {
				return err
			}
			for i := range logs {
				printLog(cmd, &logs[i])
			}
			total := hydration.TotalMl(logs)
			profile, err := a.hydration.Profile(cmd.Context())
			if err != nil {
				cmd.Printf("Total: %.0f ml\n", total)
				return nil
			}
			goal := hydration.DailyGoalMl(hydration.GoalInputsFromProfile(profile))
			cmd.Printf("Total: %.0f / %.0f ml\n", total, goal)
			return nil
		},
	}
}

func waterUpdateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <ml>",
		Short: "Change the amount of a logged drink",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}
			a, err := c.getApp()
			if err != nil {
				return err
			}
			log, err := a.hydration.UpdateWaterLog(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			printLog(cmd, log)
			return nil
		},
	}
}

func waterDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a logged drink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			if err := a.hydration.DeleteWaterLog(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println("Deleted " + args[0])
			return nil
		},
	}
}
