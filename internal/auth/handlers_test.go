package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatonemovie/thatonemovie/internal/config"
	"github.com/thatonemovie/thatonemovie/internal/validation"
)

func setupHandlers(t *testing.T, gotrue *GoTrueClient) (*echo.Echo, *Service) {
	t.Helper()
	svc := newTestService(t)
	e := echo.New()
	e.Validator = validation.New()
	NewHandlers(svc, gotrue).RegisterRoutes(e.Group("/auth"))
	return e, svc
}

func doRequest(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_SignIn(t *testing.T) {
	gotrue := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"bearer","user":{"id":"u1"}}`))
	})
	e, _ := setupHandlers(t, gotrue)

	rec := doRequest(e, http.MethodPost, "/auth/signin", `{"email":"a@example.com","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"access_token":"at"`)
}

func TestHandlers_SignInErrors(t *testing.T) {
	gotrue := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	})
	e, _ := setupHandlers(t, gotrue)

	rec := doRequest(e, http.MethodPost, "/auth/signin", `{"email":"a@example.com","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(e, http.MethodPost, "/auth/signin", `{"email":"not-an-email","password":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlers_SignUpWithoutBackend(t *testing.T) {
	e, _ := setupHandlers(t, NewGoTrueClient(config.BackendConfig{}, zerolog.Nop()))

	rec := doRequest(e, http.MethodPost, "/auth/signup", `{"email":"a@example.com","password":"hunter22","username":"cinephile"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandlers_GetUserFromClaims(t *testing.T) {
	e, svc := setupHandlers(t, NewGoTrueClient(config.BackendConfig{}, zerolog.Nop()))

	rec := doRequest(e, http.MethodGet, "/auth/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := svc.IssueToken("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	rec = doRequest(e, http.MethodGet, "/auth/user", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-1","email":"a@example.com"}`, rec.Body.String())
}

func TestHandlers_SignOut(t *testing.T) {
	var sawToken string
	gotrue := newGoTrueServer(t, func(w http.ResponseWriter, r *http.Request) {
		sawToken = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	})
	e, svc := setupHandlers(t, gotrue)

	token, err := svc.IssueToken("user-1", "", time.Hour)
	require.NoError(t, err)

	rec := doRequest(e, http.MethodPost, "/auth/signout", "", token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Bearer "+token, sawToken)
}
