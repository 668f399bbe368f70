package services

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"tickertalk/internal/models"
	"tickertalk/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

const resetAudience = "password-reset"

var (
	ErrResetTokenInvalid = errors.New("reset token is invalid")
	ErrResetTokenExpired = errors.New("reset token has expired")
)

// ResetClaims is the payload of a password reset token.
type ResetClaims struct {
	UserID uint   `json:"user_id"`
	Stamp  string `json:"stamp"`
	jwt.RegisteredClaims
}

// ResetTokens signs and parses HS256 reset tokens.
type ResetTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokens(secret string, ttl time.Duration) *ResetTokens {
	return &ResetTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// passwordStamp ties a token to the password hash it was issued against.
func passwordStamp(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:])[:16]
}

func (t *ResetTokens) Issue(u *models.User) (string, error) {
	now := t.now()
	claims := ResetClaims{
		UserID: u.ID,
		Stamp:  passwordStamp(u.Password),
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{resetAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

func (t *ResetTokens) Parse(token string) (*ResetClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ResetClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithAudience(resetAudience), jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrResetTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrResetTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*ResetClaims)
	if !ok || !parsed.Valid {
		return nil, ErrResetTokenInvalid
	}
	return claims, nil
}

// PasswordResetService runs the forgot-password flow end to end.
type PasswordResetService struct {
	tokens   *ResetTokens
	accounts *AccountService
	mailer   Mailer
	siteURL  string
}

func NewPasswordResetService(tokens *ResetTokens, accounts *AccountService, mailer Mailer, siteURL string) *PasswordResetService {
	return &PasswordResetService{tokens: tokens, accounts: accounts, mailer: mailer, siteURL: siteURL}
}

// RequestReset emails a reset link when email belongs to a user. Unknown emails are not reported.
func (s *PasswordResetService) RequestReset(email string) error {
	user, err := s.accounts.FindByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		utils.Sugar.Infow("password reset requested for unknown email", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	link := fmt.Sprintf("%s/reset_password/%s", s.siteURL, token)
	return s.mailer.SendPasswordReset(user.Email, user.FullName(), link)
}

// Verify decodes token and loads its user, rejecting bad signatures, expiry and tokens already used.
func (s *PasswordResetService) Verify(token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	user, err := s.accounts.FindByID(claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrResetTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if claims.Stamp != passwordStamp(user.Password) {
		return nil, ErrResetTokenInvalid
	}
	return user, nil
}

// Reset verifies token and stores the new password.
func (s *PasswordResetService) Reset(token, password, confirm string) (*models.User, error) {
	user, err := s.Verify(token)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.SetPassword(user, password, confirm); err != nil {
		return nil, err
	}
	utils.Sugar.Infow("password reset", "user_id", user.ID)
	return user, nil
}
