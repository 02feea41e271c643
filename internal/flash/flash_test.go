package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/grievanceportal/pkg/cache"
)

func TestAddThenPopOnce(t *testing.T) {
	f := New(NewMemoryStore(cache.New()), false, nil)

	rec := httptest.NewRecorder()
	f.Add(rec, httptest.NewRequest(http.MethodPost, "/register", nil), Success, "Account created successfully!")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	next := httptest.NewRequest(http.MethodGet, "/login", nil)
	next.AddCookie(cookies[0])
	assert.Equal(t, []Message{{Category: Success, Text: "Account created successfully!"}}, f.Pop(next))
	assert.Empty(t, f.Pop(next), "messages are shown once")
}

func TestAddReusesCookieAndKeepsOrder(t *testing.T) {
	f := New(NewMemoryStore(cache.New()), false, nil)

	first := httptest.NewRecorder()
	f.Add(first, httptest.NewRequest(http.MethodPost, "/", nil), Info, "one")
	c := first.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.AddCookie(c)
	second := httptest.NewRecorder()
	f.Add(second, r, Danger, "two")
	assert.Empty(t, second.Result().Cookies(), "existing flash id is reused")

	msgs := f.Pop(r)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, Danger, msgs[1].Category)
}

func TestPopIsolatedPerBrowser(t *testing.T) {
	f := New(NewMemoryStore(cache.New()), false, nil)

	rec := httptest.NewRecorder()
	f.Add(rec, httptest.NewRequest(http.MethodPost, "/", nil), Success, "mine")

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, f.Pop(other))

	forged := httptest.NewRequest(http.MethodGet, "/", nil)
	forged.AddCookie(&http.Cookie{Name: CookieName, Value: "../../etc"})
	assert.Nil(t, f.Pop(forged))
}
