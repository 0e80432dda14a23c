// Package session keeps one cart and one catalog per browser session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tiendaza/internal/cart"
	"tiendaza/internal/catalog"
	applog "tiendaza/internal/log"
	"tiendaza/internal/repos"
)

type Session struct {
	ID   string
	Cart *cart.Cart

	lastSeen time.Time

	catOnce    sync.Once
	cat        *catalog.Catalog
	newCatalog func() *catalog.Catalog
}

// Catalog returns the session catalog, building it (and starting its first
// load) on first use. Cart-only clients never touch the repository.
func (s *Session) Catalog() *catalog.Catalog {
	s.catOnce.Do(func() { s.cat = s.newCatalog() })
	return s.cat
}

type Store struct {
	base context.Context
	repo repos.Repository
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates sessions whose catalogs load from repo. base bounds the
// background loads those catalogs start.
func NewStore(base context.Context, repo repos.Repository, ttl time.Duration) *Store {
	return &Store{
		base:     base,
		repo:     repo,
		ttl:      ttl,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Ensure returns the session for sid. Any sid this store did not mint, or
// has since evicted, gets a fresh session under a new id; created reports
// that the caller must hand that id out.
func (s *Store) Ensure(sid string) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[sid]; ok {
		sess.lastSeen = s.now()
		return sess, false
	}
	sess = &Session{
		ID:         uuid.NewString(),
		Cart:       cart.New(),
		lastSeen:   s.now(),
		newCatalog: func() *catalog.Catalog { return catalog.New(s.base, s.repo) },
	}
	s.sessions[sess.ID] = sess
	return sess, true
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps periodically until ctx is done.
func (s *Store) Run(ctx context.Context) {
	every := s.ttl / 2
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				applog.Info(nil, "session.sweep", map[string]any{"evicted": n, "live": s.Len()})
			}
		}
	}
}
