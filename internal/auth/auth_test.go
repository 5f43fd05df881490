package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"financas/internal/core"
)

type fakeUserStore struct {
	user core.User
}

func (f *fakeUserStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	if username != f.user.Username {
		return core.User{}, core.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id int64) (core.User, error) {
	if id != f.user.ID {
		return core.User{}, core.ErrUserNotFound
	}
	return f.user, nil
}

func (f *fakeUserStore) UpdateUserPassword(_ context.Context, id int64, hash string) error {
	if id != f.user.ID {
		return core.ErrUserNotFound
	}
	f.user.PasswordHash = hash
	return nil
}

func newTestManager(t *testing.T, ttl time.Duration) (*Manager, *fakeUserStore) {
	t.Helper()
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	store := &fakeUserStore{user: core.User{ID: 1, Username: "admin", PasswordHash: hash}}
	return NewManager(store, "test-signing-key", ttl), store
}

func TestLoginAndVerify(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	token, err := m.Login(context.Background(), "admin", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 1 || claims.Username != "admin" {
		t.Errorf("claims = %+v, want uid 1 admin", claims)
	}
}

func TestLoginRejections(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "admin", "nope"},
		{"unknown user", "ghost", "secret123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(context.Background(), tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestVerifyRejectsGarbageAndForeignSignature(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	other, _ := newTestManager(t, time.Hour)
	other.secret = []byte("another-key")

	foreign, err := other.Login(context.Background(), "admin", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	for _, token := range []string{"", "not.a.token", foreign} {
		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m, _ := newTestManager(t, -time.Minute)

	token, err := m.Login(context.Background(), "admin", "secret123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(expired) error = %v, want ErrInvalidToken", err)
	}
}

func TestChangePassword(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	ctx := context.Background()

	if err := m.ChangePassword(ctx, 1, "wrong", "newpassword"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangePassword(wrong current) error = %v, want ErrInvalidCredentials", err)
	}
	if err := m.ChangePassword(ctx, 1, "secret123", "abc"); !errors.Is(err, ErrWeakPassword) {
		t.Errorf("ChangePassword(short) error = %v, want ErrWeakPassword", err)
	}

	if err := m.ChangePassword(ctx, 1, "secret123", "newpassword"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if _, err := m.Login(ctx, "admin", "newpassword"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
	if _, err := m.Login(ctx, "admin", "secret123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with old password error = %v, want ErrInvalidCredentials", err)
	}
}
