package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"medical-office-api/cmd/bootstrap"
	"medical-office-api/config"
	"medical-office-api/internal/domain/entity"
	"medical-office-api/internal/infrastructure/database"
	"medical-office-api/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "medical-office",
		Short:         "Appointment scheduling API for a medical office",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return serve()
			},
		},
		newMigrateCommand(),
		newSeedCommand(),
		newRemindCommand(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap.New(cfg)
	if err != nil {
		logrus.Errorf("Failed to initialize application: %v", err)
		return err
	}

	app.Run()
	return nil
}

func newMigrateCommand() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	run := func(direction database.MigrationDirection) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := bootstrap.NewLogger(cfg.App.LogLevel)
			if err := database.RunMigrations(cfg.DB, direction); err != nil {
				log.Errorf("Failed to migrate %s: %v", direction, err)
				return err
			}
			log.Infof("Migrations %s complete", direction)
			return nil
		}
	}

	migrate.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", RunE: run(database.MigrateUp)},
		&cobra.Command{Use: "down", Short: "Roll back the latest migration", RunE: run(database.MigrateDown)},
	)
	return migrate
}

func newSeedCommand() *cobra.Command {
	opts := service.SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo staff, practitioners and patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cfg)
			if err != nil {
				logrus.Errorf("Failed to initialize application: %v", err)
				return err
			}
			defer app.Close()
			defer app.Drain(context.Background())

			summary, err := app.Seeder.Run(cmd.Context(), opts)
			if err != nil {
				app.Log.Errorf("Failed to seed database: %v", err)
				return err
			}

			app.Log.WithFields(logrus.Fields{
				"secretaries":   summary.Secretaries,
				"practitioners": summary.Practitioners,
				"patients":      summary.Patients,
			}).Infof("Seed complete, secretary login is %s", service.SecretaryEmail)
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Practitioners, "practitioners", 5, "number of practitioners to create")
	cmd.Flags().IntVar(&opts.Patients, "patients", 20, "number of patients to create")
	cmd.Flags().StringVar(&opts.Password, "password", "password123", "password shared by every seeded account")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed for reproducible data (0 picks one)")
	return cmd
}

func newRemindCommand() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Queue reminder emails for scheduled appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cfg)
			if err != nil {
				logrus.Errorf("Failed to initialize application: %v", err)
				return err
			}
			defer app.Close()

			day := app.Reminders.DefaultDay(time.Now())
			if date != "" {
				day, err = entity.ParseDate(date)
				if err != nil {
					return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
				}
			}

			run, err := app.Reminders.SendReminders(cmd.Context(), day)
			if err != nil {
				app.Log.Errorf("Failed to send reminders: %v", err)
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()
			app.Drain(ctx)

			app.Log.Infof("Reminders for %s: %d queued of %d found", day.Format(entity.DateLayout), run.Queued, run.Found)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "day to remind about in YYYY-MM-DD (defaults to the configured lead time)")
	return cmd
}
