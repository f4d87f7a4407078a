// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/queqiao-arr/queqiao/internal/buildinfo"
	"github.com/queqiao-arr/queqiao/internal/crypto"
)

func main() {
	if err := RootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "queqiao",
		Short:        "Queqiao media services admin backend",
		SilenceUsage: true,
	}

	cmd.AddCommand(RunServeCommand())
	cmd.AddCommand(RunVersionCommand())
	cmd.AddCommand(RunGenSecretCommand())
	cmd.AddCommand(RunCreateUserCommand())
	cmd.AddCommand(RunChangePasswordCommand())

	return cmd
}

func RunVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(buildinfo.String())
		},
	}
}

func RunGenSecretCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-secret",
		Short: "Generate a random secret suitable for jwtSecret or encryptionSecret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := crypto.GenerateSecureToken(32)
			if err != nil {
				return err
			}
			cmd.Println(secret)
			return nil
		},
	}
}
