package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/vetmatch/identity/internal/config"
	"github.com/vetmatch/identity/internal/database"
	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/observability"
	"github.com/vetmatch/identity/internal/tools/common"
	"github.com/vetmatch/identity/internal/tools/ui"
)

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Identity schema tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newStepCommand(opts, "up", "Apply schema migrations", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
			if err := database.Migrate(db.WithContext(ctx)); err != nil {
				return nil, err
			}
			return tableStates(db)
		}),
		newStepCommand(opts, "status", "Report schema and account state", func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
			return statusDetails(ctx, db, cfg.RecoveryWindow, time.Now())
		}),
		newStepCommand(opts, "plan", "Show which tables a migration would create", func(ctx context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
			if err := ping(ctx, db); err != nil {
				return nil, err
			}
			details, err := tableStates(db)
			if err != nil {
				return nil, err
			}
			return append(details, "no mutation executed in plan mode"), nil
		}),
	)
	return cmd
}

type step func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error)

func newStepCommand(opts *options, use, short string, fn step) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			title := "migrate " + use
			start := time.Now()
			details, err := run(opts, title, func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer func() { _ = sqlDB.Close() }()
				}
				return fn(ctx, cfg, db)
			})
			status := "success"
			if err != nil {
				status = "failure"
			}
			observability.RecordToolCommandRun(cmd.Context(), "migrate", use, status)
			observability.RecordToolCommandDuration(cmd.Context(), "migrate", use, status, time.Since(start))
			if opts.ci {
				common.PrintCIResult(err == nil, title, details, err)
			}
			if err != nil {
				if !opts.ci {
					fmt.Fprintln(os.Stderr, err)
				}
				os.Exit(3)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn ui.Action) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, opts.timeout, fn)
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

// tableStates lists every model table as present or pending.
func tableStates(db *gorm.DB) ([]string, error) {
	migrator := db.Migrator()
	details := make([]string, 0, len(database.Models()))
	for _, model := range database.Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		state := "pending"
		if migrator.HasTable(model) {
			state = "present"
		}
		details = append(details, fmt.Sprintf("table %s: %s", stmt.Schema.Table, state))
	}
	return details, nil
}

// statusDetails adds account counts to the table report. Withdrawn rows past
// the recovery window are reported as expired; nothing deletes them.
func statusDetails(ctx context.Context, db *gorm.DB, window time.Duration, now time.Time) ([]string, error) {
	if err := ping(ctx, db); err != nil {
		return nil, err
	}
	details, err := tableStates(db)
	if err != nil {
		return nil, err
	}
	if !db.Migrator().HasTable(&domain.User{}) {
		return details, nil
	}

	var active, recoverable, expired int64
	q := db.WithContext(ctx).Model(&domain.User{})
	if err := q.Session(&gorm.Session{}).Where("deleted_at IS NULL").Count(&active).Error; err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	cutoff := now.Add(-window)
	if err := q.Session(&gorm.Session{}).Where("deleted_at IS NOT NULL AND deleted_at >= ?", cutoff).Count(&recoverable).Error; err != nil {
		return nil, fmt.Errorf("count recoverable users: %w", err)
	}
	if err := q.Session(&gorm.Session{}).Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).Count(&expired).Error; err != nil {
		return nil, fmt.Errorf("count expired users: %w", err)
	}
	return append(details,
		fmt.Sprintf("users: %d active", active),
		fmt.Sprintf("users: %d withdrawn within recovery window", recoverable),
		fmt.Sprintf("users: %d withdrawn past recovery window", expired),
	), nil
}
