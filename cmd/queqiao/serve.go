// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/queqiao-arr/queqiao/internal/api"
	"github.com/queqiao-arr/queqiao/internal/auth"
	"github.com/queqiao-arr/queqiao/internal/buildinfo"
	"github.com/queqiao-arr/queqiao/internal/config"
	"github.com/queqiao-arr/queqiao/internal/crypto"
	"github.com/queqiao-arr/queqiao/internal/database"
	"github.com/queqiao-arr/queqiao/internal/logger"
	"github.com/queqiao-arr/queqiao/internal/models"
	"github.com/queqiao-arr/queqiao/internal/probes"
)

func RunServeCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), configDir)
		},
	}

	cmd.Flags().StringVar(&configDir, "config-dir", "", "Path to the config file or its directory")

	return cmd
}

func runServer(ctx context.Context, configDir string) error {
	appConfig, err := config.New(configDir)
	if err != nil {
		return err
	}

	cfg := appConfig.Config
	cfg.Version = buildinfo.Version
	logger.Setup(cfg)

	log.Info().
		Str("version", buildinfo.Version).
		Str("commit", buildinfo.Commit).
		Str("config", appConfig.GetConfigPath()).
		Msg("starting queqiao")

	db, err := database.New(appConfig.GetDatabasePath())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}()

	encryptor, err := crypto.NewEncryptorFromSecret(cfg.EncryptionSecret, cfg.EncryptionSalt)
	if err != nil {
		return err
	}

	tokenIssuer := auth.NewTokenIssuer([]byte(cfg.JWTSecret), time.Duration(cfg.TokenExpiryMinutes)*time.Minute)

	server := api.NewServer(&api.Dependencies{
		Config:             cfg,
		DB:                 db,
		AuthService:        auth.NewService(db, tokenIssuer),
		ServiceConfigStore: models.NewServiceConfigStore(db, encryptor),
		ConfigurationStore: models.NewConfigurationStore(db, encryptor),
		DictStore:          models.NewDictStore(db),
		Prober:             probes.New(time.Duration(cfg.ProbeTimeoutSeconds) * time.Second),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
