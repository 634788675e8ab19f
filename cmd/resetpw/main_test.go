package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"echo-viewer/internal/database"
)

// setupTestDB creates a database in a temporary directory.
func setupTestDB(t *testing.T) (*database.Database, string) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(context.Background(), filepath.Join(dir, databaseFile))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})
	return db, dir
}

// stubPasswords makes readPassword return inputs in order.
func stubPasswords(t *testing.T, inputs ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func() ([]byte, error) {
		if len(inputs) == 0 {
			return nil, errors.New("no more input")
		}
		next := inputs[0]
		inputs = inputs[1:]
		return []byte(next), nil
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		wantErr  bool
	}{
		{"valid password", "validpass123", "validpass123", false},
		{"minimum length", "123456", "123456", false},
		{"maximum length", strings.Repeat("a", 72), strings.Repeat("a", 72), false},
		{"too short", "12345", "12345", true},
		{"empty", "", "", true},
		{"too long", strings.Repeat("a", 73), strings.Repeat("a", 73), true},
		{"mismatched", "password123", "password456", true},
		{"unicode", "pässwörd", "pässwörd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword([]byte(tt.password), []byte(tt.confirm))
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveDatabaseDir(t *testing.T) {
	t.Setenv("DATABASE_DIR", "")
	if got := resolveDatabaseDir(""); got != defaultDatabaseDir {
		t.Errorf("default = %q, want %q", got, defaultDatabaseDir)
	}

	t.Setenv("DATABASE_DIR", "/srv/echo")
	if got := resolveDatabaseDir(""); got != "/srv/echo" {
		t.Errorf("env = %q, want /srv/echo", got)
	}
	if got := resolveDatabaseDir("/flag"); got != "/flag" {
		t.Errorf("flag = %q, want /flag", got)
	}
}

func TestShowStatusIntegration(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := showStatus(ctx, db, &out); err != nil {
		t.Fatalf("showStatus: %v", err)
	}
	if !strings.Contains(out.String(), "No password configured") {
		t.Errorf("output = %q", out.String())
	}

	if err := db.CreateUser(ctx, "initial1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	out.Reset()
	if err := showStatus(ctx, db, &out); err != nil {
		t.Fatalf("showStatus: %v", err)
	}
	if !strings.Contains(out.String(), "Password is configured") {
		t.Errorf("output = %q", out.String())
	}
}

func TestResetPasswordNoUsersIntegration(t *testing.T) {
	db, _ := setupTestDB(t)
	stubPasswords(t, "newpass1", "newpass1")

	err := resetPassword(context.Background(), db, &bytes.Buffer{})
	if !errors.Is(err, errNoPassword) {
		t.Errorf("err = %v, want errNoPassword", err)
	}
}

func TestResetPasswordIntegration(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.CreateUser(ctx, "oldpass1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	user, err := db.ValidatePassword(ctx, "oldpass1")
	if err != nil {
		t.Fatalf("ValidatePassword: %v", err)
	}
	session, err := db.CreateSession(ctx, user.ID, database.DefaultSessionDuration)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	stubPasswords(t, "newpass1", "newpass1")
	var out bytes.Buffer
	if err := resetPassword(ctx, db, &out); err != nil {
		t.Fatalf("resetPassword: %v", err)
	}
	if !strings.Contains(out.String(), "Password updated successfully") {
		t.Errorf("output = %q", out.String())
	}

	if _, err := db.ValidatePassword(ctx, "newpass1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
	if _, err := db.ValidatePassword(ctx, "oldpass1"); !errors.Is(err, database.ErrInvalidPassword) {
		t.Errorf("old password err = %v, want ErrInvalidPassword", err)
	}
	if _, err := db.ValidateSession(ctx, session.Token); err == nil {
		t.Error("session survived a password reset")
	}
}

func TestResetPasswordRejectsBadInputIntegration(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
	}{
		{"mismatch", []string{"newpass1", "newpass2"}},
		{"too short", []string{"abc", "abc"}},
		{"read failure", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := setupTestDB(t)
			ctx := context.Background()
			if err := db.CreateUser(ctx, "oldpass1"); err != nil {
				t.Fatalf("CreateUser: %v", err)
			}

			stubPasswords(t, tt.inputs...)
			if err := resetPassword(ctx, db, &bytes.Buffer{}); err == nil {
				t.Fatal("expected an error")
			}
			if _, err := db.ValidatePassword(ctx, "oldpass1"); err != nil {
				t.Errorf("old password no longer valid: %v", err)
			}
		})
	}
}

func TestRootCommandIntegration(t *testing.T) {
	_, dir := setupTestDB(t)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status", "--database-dir", dir})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "No password configured") {
		t.Errorf("output = %q", out.String())
	}

	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"reset", "--database-dir", dir})
	stubPasswords(t, "newpass1", "newpass1")
	if err := cmd.Execute(); !errors.Is(err, errNoPassword) {
		t.Errorf("reset err = %v, want errNoPassword", err)
	}
}

func TestRootCommandArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"frobnicate"}},
		{"extra argument", []string{"status", "extra"}},
		{"missing database", []string{"status", "--database-dir", filepath.Join(t.TempDir(), "missing", "dir")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)
			if err := cmd.Execute(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRootCommandStructure(t *testing.T) {
	cmd := newRootCmd()
	want := map[string]bool{"reset": false, "status": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
	if cmd.PersistentFlags().Lookup("database-dir") == nil {
		t.Error("missing --database-dir flag")
	}
}
