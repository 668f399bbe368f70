package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"tickertalk/internal/utils"

	"github.com/google/uuid"
)

const (
	CodeLength        = 6
	MaxVerifyAttempts = 5
)

var (
	ErrCodeMismatch    = errors.New("incorrect verification code")
	ErrTooManyAttempts = errors.New("too many incorrect codes, please start again")
)

// VerificationService issues emailed one-time codes and checks them against per-request pending records.
type VerificationService struct {
	store  PendingStore
	mailer Mailer
	ttl    time.Duration
	now    func() time.Time
}

func NewVerificationService(store PendingStore, mailer Mailer, ttl time.Duration) *VerificationService {
	return &VerificationService{store: store, mailer: mailer, ttl: ttl, now: time.Now}
}

// Begin stores p under a fresh token with a fresh code and emails the code to email.
// When the email cannot be sent nothing is kept and the send error is returned.
func (s *VerificationService) Begin(ctx context.Context, p *Pending, email, name string) (string, error) {
	code, err := utils.GenerateRandomCode(CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	p.Token = uuid.NewString()
	p.Code = code
	p.Attempts = 0
	p.ExpiresAt = s.now().Add(s.ttl)

	if err := s.store.Save(ctx, p); err != nil {
		return "", fmt.Errorf("save pending verification: %w", err)
	}
	if err := s.mailer.SendVerificationCode(email, name, code); err != nil {
		_ = s.store.Delete(ctx, p.Token)
		return "", fmt.Errorf("send verification code: %w", err)
	}
	utils.Sugar.Infow("verification code issued", "kind", p.Kind, "email", email)
	return p.Token, nil
}

// Peek returns the pending record for token without touching it.
func (s *VerificationService) Peek(ctx context.Context, token string) (*Pending, error) {
	if token == "" {
		return nil, ErrPendingNotFound
	}
	p, err := s.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(p.ExpiresAt) {
		_ = s.store.Delete(ctx, token)
		return nil, ErrPendingNotFound
	}
	return p, nil
}

// Confirm checks code against the record for token. A match consumes the record and returns it.
// A mismatch only counts the attempt; the same code stays valid until expiry or MaxVerifyAttempts.
func (s *VerificationService) Confirm(ctx context.Context, token, code string) (*Pending, error) {
	p, err := s.Peek(ctx, token)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if subtle.ConstantTimeCompare([]byte(code), []byte(p.Code)) == 1 {
		if err := s.store.Delete(ctx, token); err != nil {
			return nil, err
		}
		return p, nil
	}

	p.Attempts++
	if p.Attempts >= MaxVerifyAttempts {
		_ = s.store.Delete(ctx, token)
		return nil, ErrTooManyAttempts
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	return nil, ErrCodeMismatch
}

// Cancel drops a pending verification, e.g. on logout.
func (s *VerificationService) Cancel(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Delete(ctx, token)
}
