package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/grievanceportal/internal/domain"
	"github.com/aryan0dhankhar/grievanceportal/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/grievanceportal/internal/security/auth"
	"github.com/aryan0dhankhar/grievanceportal/pkg/cache"
)

type memUsers map[int64]*domain.User

func (m memUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func newTestManager(users memUsers) (*Manager, *MemoryStore) {
	store := NewMemoryStore(cache.New())
	m := NewManager(auth.NewTokenManager("test-secret", "test"), store, users, Options{TTL: time.Hour, RememberTTL: 48 * time.Hour}, nil)
	return m, store
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", CookieName)
	return nil
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/account", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestLoginThenPrincipal(t *testing.T) {
	alice := &domain.User{ID: 1, Username: "alice"}
	m, _ := newTestManager(memUsers{1: alice})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), rec, alice, false))

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Zero(t, c.MaxAge, "a non-remembered login uses a browser-session cookie")

	assert.Equal(t, alice, m.Principal(requestWith(c)))
}

func TestLogin_RememberSetsPersistentCookie(t *testing.T) {
	alice := &domain.User{ID: 1}
	m, _ := newTestManager(memUsers{1: alice})

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), rec, alice, true))

	c := sessionCookie(t, rec)
	assert.Equal(t, int((48 * time.Hour).Seconds()), c.MaxAge)
}

func TestLogoutRevokesToken(t *testing.T) {
	alice := &domain.User{ID: 1}
	m, store := newTestManager(memUsers{1: alice})
	ctx := context.Background()

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(ctx, rec, alice, false))
	c := sessionCookie(t, rec)

	out := httptest.NewRecorder()
	assert.Equal(t, int64(1), m.Logout(ctx, out, requestWith(c)))
	assert.Less(t, sessionCookie(t, out).MaxAge, 0)

	assert.Nil(t, m.Principal(requestWith(c)), "the old token must not authenticate after logout")
	assert.Zero(t, store.cache.Len())
}

func TestPrincipal_Anonymous(t *testing.T) {
	alice := &domain.User{ID: 1}
	m, _ := newTestManager(memUsers{1: alice})

	assert.Nil(t, m.Principal(requestWith(nil)))
	assert.Nil(t, m.Principal(requestWith(&http.Cookie{Name: CookieName, Value: "garbage"})))

	other := auth.NewTokenManager("other-secret", "test")
	forged, err := other.GenerateToken(1, "sid", false, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, m.Principal(requestWith(&http.Cookie{Name: CookieName, Value: forged})))
}

func TestPrincipal_DeletedUser(t *testing.T) {
	users := memUsers{1: {ID: 1}}
	m, _ := newTestManager(users)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), rec, users[1], false))
	delete(users, 1)

	assert.Nil(t, m.Principal(requestWith(sessionCookie(t, rec))))
}

func TestRequired(t *testing.T) {
	alice := &domain.User{ID: 1}
	m, _ := newTestManager(memUsers{1: alice})

	var got *domain.User
	h := m.Required(func(w http.ResponseWriter, r *http.Request, p *domain.User) {
		got = p
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grievance/new?draft=1", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fgrievance%2Fnew%3Fdraft%3D1", rec.Header().Get("Location"))
	assert.Nil(t, got)

	login := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), login, alice, false))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWith(sessionCookie(t, login)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, alice, got)
}

func TestOptionalPassesNil(t *testing.T) {
	m, _ := newTestManager(memUsers{})
	called := false
	m.Optional(func(w http.ResponseWriter, r *http.Request, p *domain.User) {
		called = true
		assert.Nil(t, p)
	}).ServeHTTP(httptest.NewRecorder(), requestWith(nil))
	assert.True(t, called)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/account":             "/account",
		"/user/bob?page=2":     "/user/bob?page=2",
		"":                     "",
		"https://evil.example": "",
		"//evil.example/path":  "",
		`/\evil.example`:       "",
		"account":              "",
		"javascript:alert(1)":  "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in), in)
	}
}

func TestRedisStore_ConnectionErrorIsWrapped(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(redis.NewFromClient(rdb))

	err := store.Save(context.Background(), "sid", 1, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save session")

	_, err = store.Lookup(context.Background(), "sid")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}
