// Package session keeps the client's authenticated state across restarts.
//
// A Store starts anonymous, is moved to authenticated by Establish and back
// by Clear. The state is persisted in the local metadata table, so a new
// process resumes where the previous one stopped. Nothing here verifies
// credentials; the store only remembers what the server handed out.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/rechub/internal/client/repositories/metadata"
)

// Key is the metadata key the session is stored under.
const Key = "session"

// RoleGuest is reported for an anonymous session.
const RoleGuest = "guest"

type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

func (s Session) Authenticated() bool {
	return s.AccessToken != "" && s.UserID != ""
}

// EffectiveRole is the stored role, or RoleGuest when anonymous.
func (s Session) EffectiveRole() string {
	if !s.Authenticated() || s.Role == "" {
		return RoleGuest
	}
	return s.Role
}

type Store struct {
	repo metadata.Repository

	mu  sync.RWMutex
	cur Session
}

func NewStore(repo metadata.Repository) *Store {
	return &Store{repo: repo}
}

// Load reads the persisted session. A missing or unreadable record yields an
// anonymous session; only storage failures are returned.
func (s *Store) Load(ctx context.Context) (Session, error) {
	raw, err := s.repo.Get(ctx, Key)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	var sess Session
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &sess); err != nil {
			sess = Session{}
		}
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Store) Current() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// AccessToken returns the current access token, empty when anonymous.
func (s *Store) AccessToken() string {
	return s.Current().AccessToken
}

// Establish persists sess and makes it current. The in-memory state only
// changes once the write succeeded.
func (s *Store) Establish(ctx context.Context, sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.repo.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.mu.Lock()
	s.cur = sess
	s.mu.Unlock()
	return nil
}

// UpdateTokens replaces the token pair of the current session, keeping the
// identity.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	sess := s.Current()
	sess.AccessToken = access
	sess.RefreshToken = refresh
	return s.Establish(ctx, sess)
}

// Clear forgets the session both in memory and on disk.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.cur = Session{}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
