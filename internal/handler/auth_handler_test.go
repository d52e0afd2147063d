package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/growmind/internal/model"
)

func newLoginAuthService() *mockAuthService {
	return &mockAuthService{
		loginFn: func(ctx context.Context, username string) (*model.Session, *model.User, error) {
			if username == "" {
				return nil, nil, model.NewInvalidUsernameError("empty")
			}
			return &model.Session{
					ID:        "session-abc",
					UserID:    "user-1",
					ExpiresAt: testNow.Add(24 * time.Hour),
				}, &model.User{
					ID:       "user-1",
					Username: username,
				}, nil
		},
	}
}

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	h := NewAuthHandler(newLoginAuthService(), AuthHandlerConfig{
		CookieDomain:  "example.com",
		CookieSecure:  true,
		SessionMaxAge: 86400,
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("expected session_id cookie to be set")
	}
	if session.Value != "session-abc" {
		t.Errorf("cookie value = %q, want %q", session.Value, "session-abc")
	}
	if !session.HttpOnly {
		t.Error("expected session cookie to be HttpOnly")
	}
	if !session.Secure {
		t.Error("expected session cookie to be Secure")
	}
	if session.MaxAge != 86400 {
		t.Errorf("MaxAge = %d, want %d", session.MaxAge, 86400)
	}
	if session.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", session.SameSite)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["username"] != "alice" {
		t.Errorf("username = %v, want %q", body["username"], "alice")
	}
	if body["id"] != "user-1" {
		t.Errorf("id = %v, want %q", body["id"], "user-1")
	}
}

func TestAuthHandler_Login_InvalidJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(newLoginAuthService(), AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != model.ErrCodeInvalidBody {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidBody)
	}
}

func TestAuthHandler_Login_InvalidUsername_Returns400(t *testing.T) {
	h := NewAuthHandler(newLoginAuthService(), AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":""}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["code"] != model.ErrCodeInvalidUsername {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeInvalidUsername)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("expected no cookie on failed login")
	}
}

func TestAuthHandler_Login_ServiceError_Returns500(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, username string) (*model.Session, *model.User, error) {
			return nil, nil, errors.New("db down")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if strings.Contains(w.Body.String(), "db down") {
		t.Error("internal error detail should not be exposed")
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	var loggedOut string
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if loggedOut != "session-abc" {
		t.Errorf("logged out session = %q, want %q", loggedOut, "session-abc")
	}

	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == "session_id" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}

func TestAuthHandler_Logout_ServiceError_StillClearsCookie(t *testing.T) {
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			return errors.New("db error")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if len(resp.Cookies()) == 0 {
		t.Error("expected session cookie to be cleared even on error")
	}
}

func TestAuthHandler_Logout_NoCookie_DoesNotCallService(t *testing.T) {
	called := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			called = true
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if called {
		t.Error("Logout should not be called without a session cookie")
	}
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestAuthHandler_Me_ReturnsUser(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			if sessionID != "session-abc" {
				t.Errorf("sessionID = %q, want %q", sessionID, "session-abc")
			}
			return &model.User{ID: "user-1", Username: "alice"}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-abc"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["username"] != "alice" {
		t.Errorf("username = %v, want %q", body["username"], "alice")
	}
}

func TestAuthHandler_Me_NoCookie_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_ExpiredSession_Returns401(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return nil, model.NewUnauthorizedError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "expired"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
