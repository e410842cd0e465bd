package session

import (
	"sync"

	"github.com/dynamost/totalizator-bot/internal/models"
)

// Store holds the in-progress bet flow per user. Sessions are scratch
// state: starting a new flow overwrites the old one, a finished or dead
// flow is cleared, and nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]models.BetSession
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]models.BetSession)}
}

func (s *Store) Get(userID int64) (models.BetSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

func (s *Store) Put(userID int64, sess models.BetSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
