package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sipwell/sipwell-client/internal/config"
	"github.com/spf13/cobra"
)

const sentryFlushTimeout = 2 * time.Second

// cli carries the state shared by the commands of one invocation.
type cli struct {
	configLocation string
	debug          bool
	config         config.Config
	app            *app
}

func createRootCmd() *cobra.Command {
	c := &cli{}
	rootCmd := &cobra.Command{
		Use:           "sipwell",
		Short:         "Track your water intake from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
	}
	rootCmd.PersistentFlags().StringVar(&c.configLocation, "config", "", "Directory containing config.yaml and secret_config.yaml")
	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Log debug messages to stderr")

	rootCmd.AddCommand(
		loginCmd(c),
		registerCmd(c),
		logoutCmd(c),
		statusCmd(c),
		waterCmd(c),
		reminderCmd(c),
		profileCmd(c),
		analyticsCmd(c),
		configCmd(c),
		keepaliveCmd(c),
	)
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	return rootCmd
}

func (c *cli) loadConfig() error {
	slog.SetDefault(jsonLogger)
	if c.configLocation != "" {
		if err := os.Setenv("CONFIG_LOCATION", c.configLocation); err != nil {
			return err
		}
	}
	swConfig, err := config.NewConfigHandler().Config()
	if err != nil {
		return fmt.Errorf("loading the configuration failed: %w", err)
	}
	c.config = swConfig
	if c.debug || swConfig.DebugMode {
		logLevel.Set(slog.LevelDebug)
	}
	return nil
}

// getApp wires the client on first use, commands that only read the config never connect.
func (c *cli) getApp() (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := newApp(c.config)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// printJSON writes the raw payload indented.
func printJSON(cmd *cobra.Command, raw []byte) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		cmd.Println(string(raw))
		return nil
	}
	output, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(output))
	return nil
}
