package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/vetmatch/identity/internal/config"
	"github.com/vetmatch/identity/internal/database"
	"github.com/vetmatch/identity/internal/domain"
	"github.com/vetmatch/identity/internal/repository"
	"github.com/vetmatch/identity/internal/security"
	"github.com/vetmatch/identity/internal/tools/common"
	"github.com/vetmatch/identity/internal/tools/ui"
)

// DemoPassword is the password of every seeded NORMAL account.
const DemoPassword = "VetMatch-demo-2026"

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

// fixture is one demo account. Withdrawn fixtures are withdrawn right after
// registration so the recovery flow can be exercised locally.
type fixture struct {
	label     string
	reg       func() repository.Registration
	withdrawn time.Duration
}

func fixtures() []fixture {
	strp := func(v string) *string { return &v }
	return []fixture{
		{
			label: "local veterinarian demo.vet@vetmatch.dev",
			reg: func() repository.Registration {
				return repository.Registration{
					User:         &domain.User{Username: strp("demovet"), Email: "demo.vet@vetmatch.dev", Phone: "01090000001", Role: domain.RoleVeterinarian, Provider: domain.ProviderNormal, IsActive: true},
					Veterinarian: &domain.VeterinarianProfile{Nickname: "demo vet"},
				}
			},
		},
		{
			label: "google hospital demo.hospital@vetmatch.dev",
			reg: func() repository.Registration {
				return repository.Registration{
					User:     &domain.User{Email: "demo.hospital@vetmatch.dev", Phone: "01090000002", Role: domain.RoleHospital, Provider: domain.ProviderGoogle, IsActive: true},
					Link:     &domain.SocialAccountLink{Provider: domain.ProviderGoogle, ProviderID: "seed-google-hospital"},
					Hospital: &domain.HospitalProfile{HospitalName: "VetMatch Demo Animal Hospital", BusinessNumber: "000-00-00000"},
				}
			},
		},
		{
			label: "withdrawn student demo.student@vetmatch.dev (recoverable)",
			reg: func() repository.Registration {
				return repository.Registration{
					User:         &domain.User{Username: strp("demostudent"), Email: "demo.student@vetmatch.dev", Phone: "01090000003", Role: domain.RoleVeterinaryStudent, Provider: domain.ProviderNormal, IsActive: true},
					Veterinarian: &domain.VeterinarianProfile{Nickname: "demo student", University: "vetmatch.dev", Experience: domain.StudentExperience("vetmatch.dev")},
				}
			},
			withdrawn: 3 * 24 * time.Hour,
		},
	}
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Demo account seeding for local development", SilenceUsage: true}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create the demo accounts that do not exist yet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return finish(opts, "seed apply", func(ctx context.Context) ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer func() { _ = sqlDB.Close() }()
				}
				if cfg.IsProduction() {
					return nil, errors.New("refusing to seed demo accounts in production")
				}
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				return Apply(ctx, repository.NewUserRepository(db), repository.NewRegistrationStore(db), time.Now())
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "List the demo accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return finish(opts, "seed dry-run", func(context.Context) ([]string, error) {
				details := make([]string, 0, len(fixtures())+1)
				for _, f := range fixtures() {
					details = append(details, "would ensure "+f.label)
				}
				return append(details, "NORMAL accounts use the password "+DemoPassword), nil
			})
		},
	}
}

// Apply registers missing fixtures. Existing accounts, active or withdrawn,
// are left untouched.
func Apply(ctx context.Context, users repository.UserRepository, store repository.RegistrationStore, now time.Time) ([]string, error) {
	hash, err := security.HashPassword(DemoPassword)
	if err != nil {
		return nil, err
	}
	var details []string
	for _, f := range fixtures() {
		reg := f.reg()
		exists, err := fixtureExists(ctx, users, reg.User)
		if err != nil {
			return details, err
		}
		if exists {
			details = append(details, "exists: "+f.label)
			continue
		}
		if reg.User.Provider == domain.ProviderNormal {
			reg.User.PasswordHash = &hash
		}
		agreed := now
		reg.User.TermsAgreedAt, reg.User.PrivacyAgreedAt = &agreed, &agreed
		if err := store.Register(ctx, reg); err != nil {
			return details, fmt.Errorf("seed %s: %w", f.label, err)
		}
		if f.withdrawn > 0 {
			reason := "seeded withdrawal"
			if err := users.MarkWithdrawn(ctx, reg.User.ID, now.Add(-f.withdrawn), &reason); err != nil {
				return details, fmt.Errorf("withdraw %s: %w", f.label, err)
			}
		}
		details = append(details, "created: "+f.label)
	}
	return details, nil
}

func fixtureExists(ctx context.Context, users repository.UserRepository, u *domain.User) (bool, error) {
	if _, err := users.FindActiveByEmail(ctx, u.Email); err == nil {
		return true, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}
	if _, err := users.FindWithdrawnByPhone(ctx, u.Phone); err == nil {
		return true, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, err
	}
	return false, nil
}

func finish(opts *options, title string, fn ui.Action) error {
	var err error
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
		var details []string
		details, err = fn(ctx)
		cancel()
		common.PrintCIResult(err == nil, title, details, err)
	} else {
		_, err = ui.Run(title, opts.timeout, fn)
	}
	if err != nil {
		if !opts.ci {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(3)
	}
	return nil
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
