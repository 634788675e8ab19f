package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"echo-viewer/internal/auth"
	"echo-viewer/internal/database"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/app/data"
	databaseFile       = "echo.db"
)

var errNoPassword = errors.New("no password configured yet; use the web interface to set up")

// readPassword reads a line from the terminal without echo. Tests replace it.
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(syscall.Stdin))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var databaseDir string

	root := &cobra.Command{
		Use:   "resetpw",
		Short: "echo-viewer password management",
		Long: `Manage the single echo-viewer password.

Initial setup is done in the web interface. This tool resets an existing
password or reports whether one is configured.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseDir, "database-dir", "",
		fmt.Sprintf("database directory (default: $DATABASE_DIR or %s)", defaultDatabaseDir))

	withDB := func(cmd *cobra.Command, fn func(ctx context.Context, db *database.Database) error) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
		defer cancel()

		dir := resolveDatabaseDir(databaseDir)
		db, err := database.New(ctx, filepath.Join(dir, databaseFile))
		if err != nil {
			return fmt.Errorf("failed to connect to database in %s: %w", dir, err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close database: %v\n", err)
			}
		}()
		return fn(ctx, db)
	}

	root.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset the password and invalidate all sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.Database) error {
				return resetPassword(ctx, db, cmd.OutOrStdout())
			})
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Report whether a password is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, db *database.Database) error {
				return showStatus(ctx, db, cmd.OutOrStdout())
			})
		},
	})

	return root
}

// resolveDatabaseDir picks the flag, then DATABASE_DIR, then the default.
func resolveDatabaseDir(flag string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv("DATABASE_DIR"); dir != "" {
		return dir
	}
	return defaultDatabaseDir
}

// validatePassword applies the same bounds as web setup.
func validatePassword(password, confirm []byte) error {
	if !bytes.Equal(password, confirm) {
		return errors.New("passwords do not match")
	}
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", auth.MinPasswordLength)
	}
	if len(password) > auth.MaxPasswordLength {
		return fmt.Errorf("password must be at most %d characters", auth.MaxPasswordLength)
	}
	return nil
}

func resetPassword(ctx context.Context, db *database.Database, out io.Writer) error {
	hasUsers, err := db.HasUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to check password status: %w", err)
	}
	if !hasUsers {
		return errNoPassword
	}

	fmt.Fprint(out, "New Password: ")
	password, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Fprint(out, "Confirm Password: ")
	confirm, err := readPassword()
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if err := validatePassword(password, confirm); err != nil {
		return err
	}

	if err := db.UpdatePassword(ctx, string(password)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Fprintln(out, "Password updated successfully.")
	fmt.Fprintln(out, "All existing sessions have been invalidated.")
	return nil
}

func showStatus(ctx context.Context, db *database.Database, out io.Writer) error {
	hasUsers, err := db.HasUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to check password status: %w", err)
	}
	if hasUsers {
		fmt.Fprintln(out, "Status: Password is configured")
	} else {
		fmt.Fprintln(out, "Status: No password configured (setup required)")
	}
	return nil
}
