package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// PendingKind says what a confirmed code unlocks.
type PendingKind string

const (
	PendingSignup PendingKind = "signup"
	PendingLogin  PendingKind = "login"
)

// Pending is the state held between issuing a code and the user typing it back.
type Pending struct {
	Token     string      `json:"token"`
	Kind      PendingKind `json:"kind"`
	Code      string      `json:"code"`
	Attempts  int         `json:"attempts"`
	ExpiresAt time.Time   `json:"expires_at"`

	// login
	UserID uint `json:"user_id,omitempty"`

	// signup
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	PasswordHash   string `json:"password_hash,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
}

var ErrPendingNotFound = errors.New("verification request not found or expired")

// PendingStore keeps pending verifications keyed by their opaque token.
type PendingStore interface {
	Save(ctx context.Context, p *Pending) error
	Get(ctx context.Context, token string) (*Pending, error)
	Delete(ctx context.Context, token string) error
}

// MemoryPendingStore is a bounded in-process store. Entries expire on their own.
type MemoryPendingStore struct {
	lru *expirable.LRU[string, Pending]
}

func NewMemoryPendingStore(size int, ttl time.Duration) *MemoryPendingStore {
	if size <= 0 {
		size = 1000
	}
	return &MemoryPendingStore{lru: expirable.NewLRU[string, Pending](size, nil, ttl)}
}

func (s *MemoryPendingStore) Save(_ context.Context, p *Pending) error {
	s.lru.Add(p.Token, *p)
	return nil
}

func (s *MemoryPendingStore) Get(_ context.Context, token string) (*Pending, error) {
	p, ok := s.lru.Get(token)
	if !ok {
		return nil, ErrPendingNotFound
	}
	return &p, nil
}

func (s *MemoryPendingStore) Delete(_ context.Context, token string) error {
	s.lru.Remove(token)
	return nil
}

// RedisPendingStore shares pending verifications across processes.
type RedisPendingStore struct {
	rc *redis.Client
}

func NewRedisPendingStore(rc *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{rc: rc}
}

func pendingKey(token string) string {
	return "verify:pending:" + token
}

// Save writes p with a TTL derived from ExpiresAt, or keeps the existing TTL when the key is already present.
func (s *RedisPendingStore) Save(ctx context.Context, p *Pending) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return ErrPendingNotFound
	}
	ok, err := s.rc.SetNX(ctx, pendingKey(p.Token), b, ttl).Result()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return s.rc.Set(ctx, pendingKey(p.Token), b, redis.KeepTTL).Err()
}

func (s *RedisPendingStore) Get(ctx context.Context, token string) (*Pending, error) {
	b, err := s.rc.Get(ctx, pendingKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPendingNotFound
	}
	if err != nil {
		return nil, err
	}
	var p Pending
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, token string) error {
	return s.rc.Del(ctx, pendingKey(token)).Err()
}
