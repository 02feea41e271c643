package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/forms"
	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/grievanceportal/internal/repository"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
	"github.com/aryan0dhankhar/grievanceportal/internal/service"
	"github.com/aryan0dhankhar/grievanceportal/pkg/config"
	"github.com/aryan0dhankhar/grievanceportal/pkg/database"
)

// readPassword is replaced in tests to avoid touching the terminal
var readPassword = term.ReadPassword

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDB loads configuration and opens the configured database.
// The caller must close the returned handle.
func openDB() (*sql.DB, *config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("reading .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(&database.Config{Driver: cfg.DatabaseDriver, URL: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return db, cfg, nil
}

var rootCmd = &cobra.Command{
	Use:          "grievancectl",
	Short:        "Administer the grievance portal",
	SilenceUsage: true,
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.MigrateUp(db, cfg.DatabaseDriver); err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), db, cfg.DatabaseDriver)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := printStatus(cmd.OutOrStdout(), db, cfg.DatabaseDriver); err != nil {
			return err
		}
		return database.CheckMigrationStatus(db, cfg.DatabaseDriver)
	},
}

func printStatus(w io.Writer, db *sql.DB, driver string) error {
	st, err := database.Status(db, driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Driver:  %s\n", driver)
	fmt.Fprintf(w, "Version: %d\n", st.Version)
	fmt.Fprintf(w, "Latest:  %d\n", st.Latest)
	if st.Dirty {
		fmt.Fprintln(w, "Dirty:   yes")
	}
	return nil
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account, prompting for its password",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		email, _ := cmd.Flags().GetString("email")

		db, cfg, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger.NewLogger(cfg.LogLevel)
		if err := database.CheckMigrationStatus(db, cfg.DatabaseDriver); err != nil {
			return fmt.Errorf("%w (run grievancectl migrate up)", err)
		}

		password, err := promptPassword(cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		store := repository.NewStore(db, log)
		authService := service.NewAuthService(store, auth.NewHasher(cfg.BcryptCost), nil, nil, log)
		return createUser(cmd.Context(), authService, cmd.OutOrStdout(), username, email, password)
	},
}

// promptPassword reads the password twice without echo
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(w, "Confirm password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

// createUser validates the account the same way the registration form does
func createUser(ctx context.Context, svc *service.AuthService, w io.Writer, username, email, password string) error {
	form, errs := forms.ParseRegistration(url.Values{
		"username":         {username},
		"email":            {email},
		"password":         {password},
		"confirm_password": {password},
	})
	if errs.Any() {
		return formError(errs)
	}

	user, err := svc.Register(ctx, service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	var dup *domain.DuplicateUserError
	if errors.As(err, &dup) {
		errs.DuplicateUser(dup.Field)
		return formError(errs)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Created user %s <%s> with id %d\n", user.Username, user.Email, user.ID)
	return nil
}

func formError(errs forms.Errors) error {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	var b strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", field, strings.Join(errs[field], " "))
	}
	return fmt.Errorf("invalid account:%s", b.String())
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	userCmd.AddCommand(userCreateCmd)
	userCreateCmd.Flags().StringP("username", "u", "", "Username shown on grievances")
	userCreateCmd.Flags().StringP("email", "e", "", "Login email")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}
