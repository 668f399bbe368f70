package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tickertalk/internal/db/dbtest"
	"tickertalk/internal/models"
	"tickertalk/internal/utils"

	"gorm.io/gorm"
)

type sentMail struct {
	To, Name, Code, Link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

func (m *fakeMailer) SendVerificationCode(to, name, code string) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Name: name, Code: code})
	return nil
}

func (m *fakeMailer) SendPasswordReset(to, name, link string) error {
	if m.fail != nil {
		return m.fail
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Name: name, Link: link})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentMail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail sent")
	}
	return m.sent[len(m.sent)-1]
}

var errSMTPDown = errors.New("smtp down")

func createUser(t *testing.T, conn *gorm.DB, username, email, password string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now()
	u := models.User{
		FirstName: "Test",
		LastName:  "User",
		Username:  username,
		Email:     email,
		Password:  hash,
		LastLogin: &now,
	}
	if err := conn.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func openDB(t *testing.T) *gorm.DB {
	return dbtest.Open(t)
}
