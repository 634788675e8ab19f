package auth

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"echo-viewer/internal/apperrors"
	"echo-viewer/internal/database"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc, err := New(db, true, time.Hour)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestDisabledAllowsEverything(t *testing.T) {
	ctx := context.Background()
	svc := Disabled()

	if svc.IsEnabled() {
		t.Error("IsEnabled() = true")
	}
	if !svc.IsAuthenticated(ctx, "") {
		t.Error("disabled service rejected an empty token")
	}
	st, err := svc.Status(ctx)
	if err != nil || st.Enabled || st.SetupComplete {
		t.Errorf("Status() = %+v, %v", st, err)
	}
	if err := svc.Logout(ctx, "abc"); err != nil {
		t.Errorf("Logout() = %v", err)
	}
	if _, err := svc.Login(ctx, "secret1"); apperrors.KindOf(err) != apperrors.KindInvalidOperation {
		t.Errorf("Login() kind = %v, want InvalidOperation", apperrors.KindOf(err))
	}
}

func TestNewRequiresStoreWhenEnabled(t *testing.T) {
	if _, err := New(nil, true, time.Hour); err == nil {
		t.Error("expected error for enabled service without store")
	}
	if _, err := New(nil, false, 0); err != nil {
		t.Errorf("disabled service: %v", err)
	}
}

func TestSetupLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	st, err := svc.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Enabled || st.SetupComplete {
		t.Errorf("Status before setup = %+v", st)
	}

	if _, err := svc.Login(ctx, "secret1"); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Errorf("Login before setup kind = %v, want Unauthorized", apperrors.KindOf(err))
	}

	if err := svc.Setup(ctx, "secret1"); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := svc.Setup(ctx, "another1"); apperrors.KindOf(err) != apperrors.KindPermissionDenied {
		t.Errorf("second Setup kind = %v, want PermissionDenied", apperrors.KindOf(err))
	}
	if st, _ := svc.Status(ctx); !st.SetupComplete {
		t.Error("SetupComplete = false after Setup")
	}

	if _, err := svc.Login(ctx, "wrong-password"); apperrors.KindOf(err) != apperrors.KindUnauthorized {
		t.Errorf("wrong password kind = %v, want Unauthorized", apperrors.KindOf(err))
	}

	session, err := svc.Login(ctx, "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !svc.IsAuthenticated(ctx, session.Token) {
		t.Error("fresh session not authenticated")
	}
	if svc.IsAuthenticated(ctx, "") || svc.IsAuthenticated(ctx, "not-hex") {
		t.Error("bogus token authenticated")
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if svc.IsAuthenticated(ctx, session.Token) {
		t.Error("session still valid after logout")
	}
	if err := svc.Logout(ctx, "not-hex"); err != nil {
		t.Errorf("Logout with garbage token = %v", err)
	}
}

func TestConcurrentSetup(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Setup(ctx, fmt.Sprintf("password%d", i))
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			if winner >= 0 {
				t.Fatalf("Setup succeeded for both %d and %d", winner, i)
			}
			winner = i
		case apperrors.KindOf(err) != apperrors.KindPermissionDenied:
			t.Errorf("Setup %d kind = %v, want PermissionDenied (err %v)", i, apperrors.KindOf(err), err)
		}
	}
	if winner < 0 {
		t.Fatal("no Setup call succeeded")
	}

	for i := 0; i < n; i++ {
		_, err := svc.Login(ctx, fmt.Sprintf("password%d", i))
		if ok := err == nil; ok != (i == winner) {
			t.Errorf("Login with password%d: err = %v, winner %d", i, err, winner)
		}
	}
}

func TestSetupPasswordLength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"too short", "12345", true},
		{"minimum", "123456", false},
		{"maximum", strings.Repeat("a", 72), false},
		{"too long", strings.Repeat("a", 73), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			err := svc.Setup(context.Background(), tt.password)
			if tt.wantErr {
				if apperrors.KindOf(err) != apperrors.KindInvalidOperation {
					t.Errorf("kind = %v, want InvalidOperation (err %v)", apperrors.KindOf(err), err)
				}
				return
			}
			if err != nil {
				t.Errorf("Setup: %v", err)
			}
		})
	}
}
