// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/queqiao-arr/queqiao/internal/auth"
	"github.com/queqiao-arr/queqiao/internal/config"
	"github.com/queqiao-arr/queqiao/internal/database"
	"github.com/queqiao-arr/queqiao/internal/models"
)

// RunCreateUserCommand creates an account without the bootstrap endpoint,
// for deployments where registration already closed.
func RunCreateUserCommand() *cobra.Command {
	var (
		configDir string
		username  string
		password  string
		email     string
		admin     bool
	)

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if password == "" {
				return errors.New("--password is required")
			}

			db, err := openDatabase(configDir)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			var emailPtr *string
			if email != "" {
				emailPtr = &email
			}

			userStore := models.NewUserStore(db)
			if _, err := userStore.Create(cmd.Context(), username, hash, emailPtr, admin); err != nil {
				if errors.Is(err, models.ErrUserExists) {
					cmd.Printf("User account already exists, leaving '%s' unchanged\n", username)
					return nil
				}
				return err
			}

			cmd.Printf("User '%s' created successfully\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to the config file or its directory")
	cmd.Flags().StringVar(&username, "username", "", "Username for the new account")
	cmd.Flags().StringVar(&password, "password", "", "Password for the new account")
	cmd.Flags().StringVar(&email, "email", "", "Optional email address")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant administrator privileges")

	return cmd
}

func RunChangePasswordCommand() *cobra.Command {
	var (
		configDir   string
		username    string
		newPassword string
	)

	cmd := &cobra.Command{
		Use:   "change-password",
		Short: "Change the password of an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				return errors.New("--username is required")
			}
			if newPassword == "" {
				return errors.New("--new-password is required")
			}

			db, err := openDatabase(configDir)
			if err != nil {
				return err
			}
			defer db.Close()

			hash, err := auth.HashPassword(newPassword)
			if err != nil {
				return err
			}

			if err := models.NewUserStore(db).UpdatePassword(cmd.Context(), username, hash); err != nil {
				return err
			}

			cmd.Println("Password changed successfully")
			return nil
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to the config file or its directory")
	cmd.Flags().StringVar(&username, "username", "", "Username of the account")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "New password")

	return cmd
}

func openDatabase(configDir string) (*database.DB, error) {
	appConfig, err := config.New(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return database.New(appConfig.GetDatabasePath())
}
