// Package session keeps per-visitor server-side state: the logged-in user
// and a single pending flash message.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoSession is returned for unknown or expired session ids.
var ErrNoSession = errors.New("session not found")

// Flash types understood by the templates.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Store persists session state keyed by an opaque id.
// Implementations must make PopFlash atomic so concurrent requests of one
// visitor never deliver the same flash twice.
type Store interface {
	// UserID returns the bound user id, 0 for anonymous sessions,
	// or ErrNoSession. A successful lookup extends the session lifetime.
	UserID(ctx context.Context, id string) (int64, error)
	// SetUserID creates or refreshes the session with userID.
	SetUserID(ctx context.Context, id string, userID int64) error
	// PutFlash overwrites the pending flash, creating the session if needed.
	PutFlash(ctx context.Context, id string, f Flash) error
	// PopFlash returns and clears the pending flash; nil when there is none.
	PopFlash(ctx context.Context, id string) (*Flash, error)
	// Destroy removes the session. Unknown ids are not an error.
	Destroy(ctx context.Context, id string) error
}

type memoryEntry struct {
	userID  int64
	flash   *Flash
	expires time.Time
}

// MemoryStore is a process-local Store. Sessions are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]*memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore returns an empty store whose sessions live for ttl after
// their last use.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// lookup returns a live entry; the caller holds mu.
func (s *MemoryStore) lookup(id string) *memoryEntry {
	e, ok := s.items[id]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expires) {
		delete(s.items, id)
		return nil
	}
	return e
}

// upsert returns the live entry for id, creating it, and extends its expiry.
func (s *MemoryStore) upsert(id string) *memoryEntry {
	e := s.lookup(id)
	if e == nil {
		e = &memoryEntry{}
		s.items[id] = e
	}
	e.expires = s.now().Add(s.ttl)
	return e
}

// UserID also extends the session, so ttl is an idle timeout.
func (s *MemoryStore) UserID(_ context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(id)
	if e == nil {
		return 0, ErrNoSession
	}
	e.expires = s.now().Add(s.ttl)
	return e.userID, nil
}

func (s *MemoryStore) SetUserID(_ context.Context, id string, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert(id).userID = userID
	return nil
}

func (s *MemoryStore) PutFlash(_ context.Context, id string, f Flash) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsert(id).flash = &f
	return nil
}

func (s *MemoryStore) PopFlash(_ context.Context, id string) (*Flash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.lookup(id)
	if e == nil {
		return nil, nil
	}
	f := e.flash
	e.flash = nil
	return f, nil
}

func (s *MemoryStore) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, id)
	return nil
}

// Sweep drops expired sessions and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for id, e := range s.items {
		if !now.Before(e.expires) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Debug("swept expired sessions", zap.Int("removed", n))
				}
			}
		}
	}()
}
