package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mongodb "github.com/roombook/booking-system/internal/infrastructure/db/mongo"
	"github.com/roombook/booking-system/internal/pkg/config"
	"github.com/roombook/booking-system/internal/seed"
	"github.com/roombook/booking-system/pkg/logger"
)

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert permissions, roles and users from a YAML fixture",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction(), Service: "booking-seed"})

			fx, err := seed.LoadFile(file)
			if err != nil {
				return err
			}

			client, db, err := mongodb.Connect(ctx, mongodb.Config{
				URI:      cfg.Mongo.URI,
				Database: cfg.Mongo.Database,
				AppName:  cfg.Mongo.AppName,
				Timeout:  cfg.Mongo.Timeout,
			})
			if err != nil {
				return err
			}
			defer func() { _ = client.Disconnect(ctx) }()

			users := mongodb.NewUserRepository(db)
			if err := users.EnsureIndexes(ctx); err != nil {
				return err
			}
			_, err = seed.Apply(ctx, users, fx, 0, log)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seeds/seed.yaml", "fixture to apply")
	return cmd
}
