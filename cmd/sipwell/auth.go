package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sipwell/sipwell-client/internal/apperrors"
	"github.com/sipwell/sipwell-client/internal/authapi"
	"github.com/sipwell/sipwell-client/internal/tokenrefresher"
	"github.com/spf13/cobra"
)

const passwordEnv string = "SIPWELL_PASSWORD"

func password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if value := os.Getenv(passwordEnv); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("a password is required, use --password or set %s", passwordEnv)
}

func loginCmd(c *cli) *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := password(pass)
			if err != nil {
				return err
			}
			a, err := c.getApp()
			if err != nil {
				return err
			}
			err = a.session.Login(cmd.Context(), email, secret)
			if errors.Is(err, apperrors.ErrInvalidCredentials) {
				return fmt.Errorf("login failed: %w", err)
			}
			if err != nil {
				return err
			}
			cmd.Println("Logged in as " + email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&pass, "password", "", "Account password, defaults to $"+passwordEnv)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func registerCmd(c *cli) *cobra.Command {
	profile := authapi.RegisterRequest{}
	var pass string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := password(pass)
			if err != nil {
				return err
			}
			profile.Password = secret
			a, err := c.getApp()
			if err != nil {
				return err
			}
			if err := a.session.Register(cmd.Context(), profile); err != nil {
				return err
			}
			cmd.Println("Registered and logged in as " + profile.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&profile.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&profile.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&pass, "password", "", "Account password, defaults to $"+passwordEnv)
	cmd.Flags().IntVar(&profile.Age, "age", 0, "Age in years")
	cmd.Flags().StringVar(&profile.Gender, "gender", "", "Gender")
	cmd.Flags().Float64Var(&profile.Weight, "weight", 0, "Weight in kg")
	cmd.Flags().Float64Var(&profile.Height, "height", 0, "Height in cm")
	cmd.Flags().StringVar(&profile.Activity, "activity", "moderate", "Activity level [low, moderate, high]")
	cmd.Flags().StringVar(&profile.Climate, "climate", "mild", "Climate [cold, mild, hot]")
	cmd.Flags().BoolVar(&profile.Pregnancy, "pregnancy", false, "Pregnant")
	cmd.Flags().StringVar(&profile.Unit, "unit", "ml", "Preferred unit")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func logoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a session is stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.getApp()
			if err != nil {
				return err
			}
			tokens, err := a.store.TokenSet(cmd.Context())
			if err != nil {
				return err
			}
			if tokens.AccessToken == "" {
				cmd.Println("Not logged in")
				return nil
			}
			cmd.Println("Logged in")
			if !tokens.HasRefreshToken() {
				cmd.Println("No refresh token, the session ends when the access token expires")
			}
			if expiresAt, ok := tokenrefresher.AccessTokenExpiry(tokens.AccessToken); ok {
				cmd.Println("Access token expires at " + expiresAt.Local().Format(time.RFC3339))
			}
			return nil
		},
	}
}
