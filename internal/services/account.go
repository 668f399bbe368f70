package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tickertalk/internal/models"
	"tickertalk/internal/utils"

	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports a single bad form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Registration is the raw signup form.
type Registration struct {
	FirstName      string
	LastName       string
	Username       string
	Email          string
	Password       string
	ProfilePicture string
}

// AccountService owns users: signup, login checks, profile edits and password changes.
type AccountService struct {
	db            *gorm.DB
	reverifyAfter time.Duration
	now           func() time.Time
}

func NewAccountService(db *gorm.DB, reverifyAfter time.Duration) *AccountService {
	return &AccountService{db: db, reverifyAfter: reverifyAfter, now: time.Now}
}

// Normalize trims surrounding whitespace. Case is kept for display.
func (r *Registration) Normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

// ValidateRegistration checks field rules and availability, in that order.
func (s *AccountService) ValidateRegistration(r Registration) error {
	switch {
	case r.FirstName == "" || r.LastName == "" || r.Username == "" || r.Email == "" || r.Password == "":
		return invalid("form", "All fields are required")
	case len([]rune(r.FirstName)) <= 1:
		return invalid("first_name", "First name must be greater than 1 character")
	case len([]rune(r.LastName)) <= 1:
		return invalid("last_name", "Last name must be greater than 1 character")
	case len([]rune(r.Username)) < 4:
		return invalid("username", "Username must be at least 4 characters")
	case !strings.Contains(r.Email, "@"):
		return invalid("email", "Email address is not valid")
	}
	switch err := utils.CheckPasswordLength(r.Password); {
	case errors.Is(err, utils.ErrPasswordTooLong):
		return invalid("password", "Password must be at most 72 characters")
	case err != nil:
		return invalid("password", "Password must contain at least 8 characters")
	}
	return s.CheckAvailable(r.Username, r.Email, 0)
}

// CheckAvailable rejects usernames or emails already held by another user, ignoring case.
func (s *AccountService) CheckAvailable(username, email string, exceptID uint) error {
	var count int64
	if username != "" {
		if err := s.db.Model(&models.User{}).
			Where("LOWER(username) = LOWER(?) AND id <> ?", username, exceptID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUsernameTaken
		}
	}
	if email != "" {
		if err := s.db.Model(&models.User{}).
			Where("LOWER(email) = LOWER(?) AND id <> ?", email, exceptID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
	}
	return nil
}

// Authenticate matches identifier against username or email and verifies the password.
func (s *AccountService) Authenticate(identifier, password string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user models.User
	err := s.db.Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", identifier, identifier).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// NeedsReverification reports whether the user has been away long enough to require an emailed code.
func (s *AccountService) NeedsReverification(u *models.User) bool {
	if u.LastLogin == nil {
		return true
	}
	return s.now().Sub(*u.LastLogin) > s.reverifyAfter
}

// RecordLogin stamps last_login.
func (s *AccountService) RecordLogin(u *models.User) error {
	now := s.now()
	if err := s.db.Model(u).UpdateColumn("last_login", now).Error; err != nil {
		return err
	}
	u.LastLogin = &now
	return nil
}

// CreateFromPending inserts the user described by a confirmed signup.
func (s *AccountService) CreateFromPending(p *Pending) (*models.User, error) {
	if err := s.CheckAvailable(p.Username, p.Email, 0); err != nil {
		return nil, err
	}
	now := s.now()
	user := models.User{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Username:         p.Username,
		Email:            p.Email,
		Password:         p.PasswordHash,
		Role:             "user",
		RegistrationDate: now,
		LastLogin:        &now,
		ProfilePicture:   p.ProfilePicture,
	}
	if user.ProfilePicture == "" {
		user.ProfilePicture = models.DefaultPicture
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *AccountService) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AccountService) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("LOWER(email) = LOWER(?)", strings.TrimSpace(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the editable profile fields; empty strings keep the current value.
type ProfileUpdate struct {
	Username       string
	Email          string
	ProfilePicture string
}

func (s *AccountService) UpdateProfile(u *models.User, in ProfileUpdate) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	updates := make(map[string]interface{})
	if in.Username != "" && in.Username != u.Username {
		if len([]rune(in.Username)) < 4 {
			return invalid("username", "Username must be at least 4 characters")
		}
		updates["username"] = in.Username
	}
	if in.Email != "" && in.Email != u.Email {
		if !strings.Contains(in.Email, "@") {
			return invalid("email", "Email address is not valid")
		}
		updates["email"] = in.Email
	}
	if in.ProfilePicture != "" {
		updates["profile_picture"] = in.ProfilePicture
	}
	if len(updates) == 0 {
		return nil
	}
	if err := s.CheckAvailable(in.Username, in.Email, u.ID); err != nil {
		return err
	}
	if err := s.db.Model(u).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

// SetPassword validates the reset composition rules and overwrites the stored hash.
func (s *AccountService) SetPassword(u *models.User, password, confirm string) error {
	switch err := utils.CheckPasswordStrength(password); {
	case errors.Is(err, utils.ErrPasswordTooLong):
		return invalid("password", "Password must be at most 72 characters")
	case err != nil:
		return invalid("password", "Password must be at least 8 characters, contain letters and numbers, and no spaces")
	}
	if password != confirm {
		return invalid("confirm_password", "Passwords do not match")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.db.Model(u).UpdateColumn("password", hash).Error; err != nil {
		return err
	}
	u.Password = hash
	return nil
}
