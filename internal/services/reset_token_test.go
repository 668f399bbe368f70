package services

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestResetTokenExpiry(t *testing.T) {
	tokens := NewResetTokens("secret", 900*time.Second)
	now := time.Now()
	tokens.now = func() time.Time { return now }

	conn := openDB(t)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")

	tok, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := tokens.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", claims.UserID, u.ID)
	}

	now = now.Add(901 * time.Second)
	if _, err := tokens.Parse(tok); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestResetTokenRejectsTampering(t *testing.T) {
	conn := openDB(t)
	u := createUser(t, conn, "alice", "alice@example.com", "secret123")

	tok, _ := NewResetTokens("secret", time.Minute).Issue(u)
	if _, err := NewResetTokens("other", time.Minute).Parse(tok); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("wrong key: expected ErrResetTokenInvalid, got %v", err)
	}
	if _, err := NewResetTokens("secret", time.Minute).Parse("not-a-token"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("garbage: expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	conn := openDB(t)
	accounts := NewAccountService(conn, time.Hour)
	mailer := &fakeMailer{}
	s := NewPasswordResetService(NewResetTokens("secret", 15*time.Minute), accounts, mailer, "http://localhost:8080")
	createUser(t, conn, "alice", "alice@example.com", "secret123")

	if err := s.RequestReset("nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatalf("unknown email must not send mail")
	}

	if err := s.RequestReset("ALICE@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	link := mailer.last(t).Link
	prefix := "http://localhost:8080/reset_password/"
	if !strings.HasPrefix(link, prefix) {
		t.Fatalf("unexpected link %q", link)
	}
	token := strings.TrimPrefix(link, prefix)

	if _, err := s.Verify(token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := s.Reset(token, "weak", "weak"); err == nil {
		t.Fatal("weak password should be rejected")
	}
	if _, err := s.Reset(token, "brandnew42", "brandnew42"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, err := accounts.Authenticate("alice", "brandnew42"); err != nil {
		t.Errorf("new password should work: %v", err)
	}

	// the password hash changed, so the same link is dead
	if _, err := s.Verify(token); !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("used token should be invalid, got %v", err)
	}
}
