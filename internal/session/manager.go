package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the session id.
const CookieName = "studymate_session"

type ctxKey struct{}

// Manager binds a Store to HTTP requests.
type Manager struct {
	store  Store
	ttl    time.Duration
	secure bool
	log    *zap.Logger
}

// NewManager returns a Manager issuing cookies valid for ttl. secure marks
// the cookie HTTPS-only.
func NewManager(store Store, ttl time.Duration, secure bool, log *zap.Logger) *Manager {
	return &Manager{store: store, ttl: ttl, secure: secure, log: log}
}

// Session is the state of one visitor for the duration of a request.
type Session struct {
	m      *Manager
	w      http.ResponseWriter
	id     string
	userID int64
}

// Middleware loads the visitor's session and stores it in the request
// context. Unknown ids and store failures yield an anonymous session.
// A loaded session gets its cookie re-issued so it expires after ttl of
// inactivity.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := &Session{m: m, w: w}

		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			uid, err := m.store.UserID(r.Context(), c.Value)
			switch {
			case err == nil:
				s.id, s.userID = c.Value, uid
				s.writeCookie(int(m.ttl.Seconds()))
			case errors.Is(err, ErrNoSession):
			default:
				m.log.Error("failed to load session", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
	})
}

// FromContext returns the request's session. Outside Manager.Middleware it
// returns an anonymous session that cannot be written to.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{}
}

// UserID is the logged-in user or 0.
func (s *Session) UserID() int64 {
	return s.userID
}

// IsLoggedIn reports whether a user is bound to the session.
func (s *Session) IsLoggedIn() bool {
	return s.userID > 0
}

var errDetached = errors.New("session middleware not installed")

// ensure allocates an id and cookie for a visitor without one.
func (s *Session) ensure() error {
	if s.m == nil {
		return errDetached
	}
	if s.id == "" {
		s.id = uuid.NewString()
		s.writeCookie(int(s.m.ttl.Seconds()))
	}
	return nil
}

func (s *Session) writeCookie(maxAge int) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     CookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login binds userID to a fresh session id, discarding the previous one.
func (s *Session) Login(ctx context.Context, userID int64) error {
	if s.m == nil {
		return errDetached
	}
	if s.id != "" {
		if err := s.m.store.Destroy(ctx, s.id); err != nil {
			return err
		}
		s.id = ""
	}
	if err := s.ensure(); err != nil {
		return err
	}
	if err := s.m.store.SetUserID(ctx, s.id, userID); err != nil {
		return err
	}
	s.userID = userID
	return nil
}

// Logout removes the session from the store and expires the cookie.
func (s *Session) Logout(ctx context.Context) error {
	if s.m == nil {
		return errDetached
	}
	s.userID = 0
	if s.id == "" {
		return nil
	}
	err := s.m.store.Destroy(ctx, s.id)
	s.writeCookie(-1)
	s.id = ""
	return err
}

// Flash returns the session's one-shot message outbox.
func (s *Session) Flash() Outbox {
	return Outbox{s: s}
}

// Outbox holds at most one pending message per session.
type Outbox struct {
	s *Session
}

// Set overwrites the pending message.
func (o Outbox) Set(ctx context.Context, typ, message string) error {
	if err := o.s.ensure(); err != nil {
		return err
	}
	return o.s.m.store.PutFlash(ctx, o.s.id, Flash{Type: typ, Message: message})
}

// Consume returns the pending message and clears it, or nil.
func (o Outbox) Consume(ctx context.Context) (*Flash, error) {
	if o.s.m == nil || o.s.id == "" {
		return nil, nil
	}
	return o.s.m.store.PopFlash(ctx, o.s.id)
}
