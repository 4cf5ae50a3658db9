package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage/inmemory"
)

type fakeProvider struct {
	user *GitHubUser
	err  error
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (p *fakeProvider) Exchange(context.Context, string) (*GitHubUser, error) {
	return p.user, p.err
}

func newTestHandler(t *testing.T, provider Provider) (*Handler, *TokenSessions, *inmemory.Store) {
	t.Helper()
	sessions, err := NewTokenSessions(testSecret, time.Hour)
	require.NoError(t, err)
	store := inmemory.New()
	return NewHandler(provider, sessions, store.Users(), observability.NewNop(), time.Hour, false), sessions, store
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandler_Login(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeProvider{})

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/github", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	state := findCookie(rec, stateCookie)
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)
	assert.Equal(t, "https://github.example/authorize?state="+state.Value, rec.Header().Get("Location"))
}

func TestHandler_Callback(t *testing.T) {
	h, sessions, store := newTestHandler(t, &fakeProvider{user: &GitHubUser{ID: 99, Login: "octocat", Name: "Octo"}})

	req := httptest.NewRequest(http.MethodGet, "/github/callback?state=abc&code=xyz", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)
	userID, err := sessions.Resolve(context.Background(), session.Value)
	require.NoError(t, err)

	user, err := store.Users().FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "octocat", user.ExternalUsername)
	assert.Equal(t, "99", user.ExternalID)

	cleared := findCookie(rec, stateCookie)
	require.NotNil(t, cleared)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestHandler_CallbackRejects(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		cookie   string
		provider *fakeProvider
		wantCode int
	}{
		{"missing state cookie", "/github/callback?state=abc&code=xyz", "", &fakeProvider{}, http.StatusBadRequest},
		{"state mismatch", "/github/callback?state=abc&code=xyz", "other", &fakeProvider{}, http.StatusBadRequest},
		{"missing code", "/github/callback?state=abc", "abc", &fakeProvider{}, http.StatusBadRequest},
		{"exchange fails", "/github/callback?state=abc&code=xyz", "abc", &fakeProvider{err: errors.New("denied")}, http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, store := newTestHandler(t, tt.provider)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, findCookie(rec, SessionCookie))

			n, err := store.Users().Count(context.Background(), nil)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestHandler_Logout(t *testing.T) {
	h, _, _ := newTestHandler(t, &fakeProvider{})

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "some-token"})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	cleared := findCookie(rec, SessionCookie)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}
