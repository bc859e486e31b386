package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sipwell/sipwell-client/internal/hydration"
	"github.com/spf13/cobra"
)

func profileCmd(c *cli) *cobra.Command {
	var changes []string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change the user profile",
		Example: "  sipwell profile\n" +
			"  sipwell profile --set weight=72 --set activity=high",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			var profile hydration.Profile
			if len(changes) == 0 {
				profile, err = a.hydration.Profile(cmd.Context())
			} else {
				var update hydration.Profile
				update, err = parseProfileChanges(changes)
				if err != nil {
					return err
				}
				profile, err = a.hydration.UpdateProfile(cmd.Context(), update)
			}
			if err != nil {
				return err
			}
			raw, err := json.Marshal(profile)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, raw); err != nil {
				return err
			}
			cmd.Printf("Daily goal: %.0f ml\n", hydration.DailyGoalMl(hydration.GoalInputsFromProfile(profile)))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&changes, "set", nil, "Change a field, as key=value")
	return cmd
}

// parseProfileChanges reads key=value pairs, values that are valid JSON keep their type.
func parseProfileChanges(changes []string) (hydration.Profile, error) {
	output := hydration.Profile{}
	for _, change := range changes {
		key, value, found := strings.Cut(change, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid profile change %q, expected key=value", change)
		}
		var typed any
		if err := json.Unmarshal([]byte(value), &typed); err != nil {
			typed = value
		}
		output[key] = typed
	}
	return output, nil
}
