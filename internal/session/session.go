package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login session identified by an opaque token.
type Session struct {
	Token     string
	Subject   string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is an in-memory session registry. Tokens are random UUIDs;
// expired sessions are dropped lazily on lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Store{sessions: make(map[string]Session), ttl: ttl}
}

func (s *Store) Create(subject, role string) Session {
	now := time.Now()
	sess := Session{
		Token:     uuid.NewString(),
		Subject:   subject,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

func (s *Store) Get(token string) (Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Now().After(sess.ExpiresAt) {
		s.Delete(token)
		return Session{}, false
	}
	return sess, true
}

func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Active returns the number of live sessions, pruning expired ones.
func (s *Store) Active() int {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, tok)
		}
	}
	return len(s.sessions)
}
