package accessgate

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type touchRecorder struct {
	mu  sync.Mutex
	ids []uint
}

func (r *touchRecorder) touch(id uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *touchRecorder) wait(t *testing.T) []uint {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		n := len(r.ids)
		r.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.ids...)
}

func newTestMiddleware(touches *touchRecorder) echo.MiddlewareFunc {
	gates, identities, sessionAuth := testCollaborators()

	cfg := Config{
		Gates:       gates,
		Identities:  identities,
		SessionAuth: sessionAuth,
	}
	if touches != nil {
		cfg.Touch = touches.touch
	}
	return Middleware(cfg)
}

func request(t *testing.T, mw echo.MiddlewareFunc, path string, cookies map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "content")
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := mw(handler)(c)
	return rec, err
}

func fullCredentials() map[string]string {
	return map[string]string{
		"gate-access":    "good-grant",
		"admin-identity": "admin-token",
		"admin-session":  "live-session",
	}
}

func TestPageRedirects(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		cookies      map[string]string
		wantLocation string
	}{
		{
			name:         "no gate cookie redirects to gate entry",
			path:         "/admin/console",
			cookies:      nil,
			wantLocation: "/gate",
		},
		{
			name:         "gate satisfied, requesting gate entry skips forward",
			path:         "/gate",
			cookies:      map[string]string{"gate-access": "good-grant"},
			wantLocation: "/login",
		},
		{
			name:         "gate but no identity redirects to login",
			path:         "/admin/console",
			cookies:      map[string]string{"gate-access": "good-grant"},
			wantLocation: "/login",
		},
		{
			name: "non-privileged identity redirected away entirely",
			path: "/admin/console",
			cookies: map[string]string{
				"gate-access":    "good-grant",
				"admin-identity": "intruder-token",
			},
			wantLocation: "/",
		},
		{
			name: "identity but no session redirects to otp entry",
			path: "/admin/console",
			cookies: map[string]string{
				"gate-access":    "good-grant",
				"admin-identity": "admin-token",
			},
			wantLocation: "/verify",
		},
		{
			name:         "verified caller requesting otp entry moves forward",
			path:         "/verify",
			cookies:      fullCredentials(),
			wantLocation: "/admin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := request(t, newTestMiddleware(nil), tt.path, tt.cookies)
			require.NoError(t, err)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}
}

func TestEntryPagesServedAtTheirStage(t *testing.T) {
	mw := newTestMiddleware(nil)

	rec, err := request(t, mw, "/gate", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, err = request(t, mw, "/login", map[string]string{"gate-access": "good-grant"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, err = request(t, mw, "/verify", map[string]string{
		"gate-access":    "good-grant",
		"admin-identity": "admin-token",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifiedRequestForwardsAndTouches(t *testing.T) {
	touches := &touchRecorder{}
	mw := newTestMiddleware(touches)

	rec, err := request(t, mw, "/admin/console", fullCredentials())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "content", rec.Body.String())

	assert.Equal(t, []uint{7}, touches.wait(t))
}

func TestSubjectAvailableToHandlers(t *testing.T) {
	gates, identities, sessionAuth := testCollaborators()
	mw := Middleware(Config{Gates: gates, Identities: identities, SessionAuth: sessionAuth})

	e := echo.New()
	var got string
	handler := func(c echo.Context) error {
		got = Subject(c)
		return c.NoContent(http.StatusOK)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/console", nil)
	for name, value := range fullCredentials() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	rec := httptest.NewRecorder()
	require.NoError(t, mw(handler)(e.NewContext(req, rec)))

	assert.Equal(t, "admin@x.com", got)
}

func TestAPIRoutesGetStructuredErrors(t *testing.T) {
	mw := newTestMiddleware(nil)

	tests := []struct {
		name     string
		cookies  map[string]string
		wantCode int
	}{
		{
			name:     "no credentials",
			cookies:  nil,
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "missing session",
			cookies: map[string]string{
				"gate-access":    "good-grant",
				"admin-identity": "admin-token",
			},
			wantCode: http.StatusUnauthorized,
		},
		{
			name: "non-privileged identity",
			cookies: map[string]string{
				"gate-access":    "good-grant",
				"admin-identity": "intruder-token",
			},
			wantCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := request(t, mw, "/api/admin/sessions", tt.cookies)
			require.Error(t, err)

			httpErr, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected echo.HTTPError, got %T", err)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestAPIVerifiedPassesThrough(t *testing.T) {
	mw := newTestMiddleware(nil)

	rec, err := request(t, mw, "/api/admin/sessions", fullCredentials())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}
