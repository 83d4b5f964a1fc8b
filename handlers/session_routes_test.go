package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clubops/admingate/middleware/accessgate"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// walkGateway completes every stage of the access flow and returns the
// cookies a fully verified client would hold.
func walkGateway(t *testing.T, f *fixture) []*http.Cookie {
	t.Helper()

	grant, _, err := f.gate.IssueGrant(time.Now())
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "admin@x.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	identityToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(f.cfg.Identity.SigningKey))
	require.NoError(t, err)

	session, err := f.sessions.Issue("admin@x.com", "10.0.0.1", "test-agent")
	require.NoError(t, err)

	require.NotEmpty(t, f.cfg.Gate.CookieName)
	require.NotEmpty(t, f.cfg.Identity.CookieName)
	require.NotEmpty(t, f.cfg.Session.CookieName)

	return []*http.Cookie{
		{Name: f.cfg.Gate.CookieName, Value: grant},
		{Name: f.cfg.Identity.CookieName, Value: identityToken},
		{Name: f.cfg.Session.CookieName, Value: session.Token},
	}
}

func guardedRequest(t *testing.T, f *fixture, method, path string, handler echo.HandlerFunc, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	guard := accessgate.Middleware(accessgate.Config{
		Gates:              f.gate,
		Identities:         f.identity,
		SessionAuth:        f.sessions,
		GateCookieName:     f.cfg.Gate.CookieName,
		IdentityCookieName: f.cfg.Identity.CookieName,
		SessionCookieName:  f.cfg.Session.CookieName,
	})

	req := httptest.NewRequest(method, path, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := f.echo.NewContext(req, rec)

	require.NoError(t, guard(handler)(c))
	return rec
}

func TestListSessions_BehindGateway(t *testing.T) {
	f := newFixture(t)
	cookies := walkGateway(t, f)

	rec := guardedRequest(t, f, http.MethodGet, "/api/admin/sessions", f.handler.ListSessions, cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	sessionList, ok := body["sessions"].([]any)
	require.True(t, ok)
	assert.Len(t, sessionList, 1)
}

func TestLogout_RevokesEverySession(t *testing.T) {
	f := newFixture(t)
	cookies := walkGateway(t, f)

	// A second session elsewhere, also revoked by global sign-out.
	_, err := f.sessions.Issue("admin@x.com", "10.0.0.2", "other-agent")
	require.NoError(t, err)

	rec := guardedRequest(t, f, http.MethodPost, "/api/admin/logout", f.handler.Logout, cookies)
	assert.Equal(t, http.StatusOK, rec.Code)

	infos, err := f.sessions.ListActive("admin@x.com")
	require.NoError(t, err)
	assert.Empty(t, infos)

	// The same cookies no longer pass the gateway.
	req := httptest.NewRequest(http.MethodGet, "/api/admin/sessions", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	guard := accessgate.Middleware(accessgate.Config{
		Gates:              f.gate,
		Identities:         f.identity,
		SessionAuth:        f.sessions,
		GateCookieName:     f.cfg.Gate.CookieName,
		IdentityCookieName: f.cfg.Identity.CookieName,
		SessionCookieName:  f.cfg.Session.CookieName,
	})
	c := f.echo.NewContext(req, httptest.NewRecorder())
	err = guard(f.handler.ListSessions)(c)
	require.Error(t, err)
	httpErr, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}
