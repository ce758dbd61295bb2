package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingStore struct{ Store }

func (failingStore) UserID(context.Context, string) (int64, error) {
	return 0, errors.New("store down")
}

func newTestManager(store Store) *Manager {
	return NewManager(store, time.Hour, false, zap.NewNop())
}

// do runs h behind the middleware, presenting cookie as the session id.
func do(t *testing.T, m *Manager, cookie string, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	m.Middleware(h).ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	var last *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			last = c
		}
	}
	return last
}

func TestMiddleware_AnonymousByDefault(t *testing.T) {
	m := newTestManager(NewMemoryStore(time.Hour))

	rec := do(t, m, "", func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		assert.False(t, s.IsLoggedIn())
		assert.Zero(t, s.UserID())
	})
	assert.Nil(t, sessionCookie(rec), "read-only requests must not allocate a session")
}

func TestMiddleware_UnknownCookieIsAnonymous(t *testing.T) {
	m := newTestManager(NewMemoryStore(time.Hour))

	do(t, m, "forged-id", func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).IsLoggedIn())
	})
}

func TestMiddleware_StoreErrorFailsClosed(t *testing.T) {
	m := newTestManager(failingStore{NewMemoryStore(time.Hour)})

	do(t, m, "some-id", func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, FromContext(r.Context()).IsLoggedIn())
	})
}

func TestMiddleware_RefreshesCookieOnUse(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newTestManager(store)
	require.NoError(t, store.SetUserID(context.Background(), "sid", 3))

	rec := do(t, m, "sid", func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, FromContext(r.Context()).IsLoggedIn())
	})

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.Equal(t, "sid", c.Value)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	rec = do(t, m, "forged-id", func(http.ResponseWriter, *http.Request) {})
	assert.Nil(t, sessionCookie(rec))
}

func TestLogin_RotatesSessionID(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newTestManager(store)

	rec := do(t, m, "", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, FromContext(r.Context()).Flash().Set(r.Context(), FlashInfo, "hello"))
	})
	anon := sessionCookie(rec)
	require.NotNil(t, anon)
	assert.True(t, anon.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, anon.SameSite)

	rec = do(t, m, anon.Value, func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.NoError(t, s.Login(r.Context(), 7))
		assert.True(t, s.IsLoggedIn())
	})
	authed := sessionCookie(rec)
	require.NotNil(t, authed)
	assert.NotEqual(t, anon.Value, authed.Value)

	_, err := store.UserID(context.Background(), anon.Value)
	assert.ErrorIs(t, err, ErrNoSession)

	do(t, m, authed.Value, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(7), FromContext(r.Context()).UserID())
	})
}

func TestLogout_DestroysSession(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	m := newTestManager(store)
	require.NoError(t, store.SetUserID(context.Background(), "sid", 3))

	rec := do(t, m, "sid", func(w http.ResponseWriter, r *http.Request) {
		s := FromContext(r.Context())
		require.True(t, s.IsLoggedIn())
		require.NoError(t, s.Logout(r.Context()))
		assert.False(t, s.IsLoggedIn())
	})

	c := sessionCookie(rec)
	require.NotNil(t, c)
	assert.True(t, c.MaxAge < 0)

	_, err := store.UserID(context.Background(), "sid")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFlash_SurvivesRedirectOnce(t *testing.T) {
	m := newTestManager(NewMemoryStore(time.Hour))

	rec := do(t, m, "", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, FromContext(r.Context()).Flash().Set(r.Context(), FlashSuccess, "Event added"))
	})
	c := sessionCookie(rec)
	require.NotNil(t, c)

	do(t, m, c.Value, func(w http.ResponseWriter, r *http.Request) {
		f, err := FromContext(r.Context()).Flash().Consume(r.Context())
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "Event added", f.Message)

		f, err = FromContext(r.Context()).Flash().Consume(r.Context())
		require.NoError(t, err)
		assert.Nil(t, f)
	})
}

func TestFromContext_Detached(t *testing.T) {
	s := FromContext(context.Background())
	assert.False(t, s.IsLoggedIn())
	assert.Error(t, s.Login(context.Background(), 1))

	f, err := s.Flash().Consume(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, f)
}
