package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Hamza-Shahid10/PITCH-CRAFT/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn        func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	loginFn           func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	signInAnonFn      func(ctx context.Context) (*model.User, *model.Session, error)
	signInWithTokenFn func(ctx context.Context, token string) (*model.User, *model.Session, error)
	logoutFn          func(ctx context.Context, sessionID string) error
	getCurrentUserFn  func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	return m.registerFn(ctx, email, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	return m.loginFn(ctx, email, password)
}

func (m *mockAuthService) SignInAnonymously(ctx context.Context) (*model.User, *model.Session, error) {
	return m.signInAnonFn(ctx)
}

func (m *mockAuthService) SignInWithToken(ctx context.Context, token string) (*model.User, *model.Session, error) {
	return m.signInWithTokenFn(ctx, token)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.getCurrentUserFn(ctx, sessionID)
}

func testSessionFor(userID string) *model.Session {
	return &model.Session{
		ID:        "session-id-abc",
		UserID:    userID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
}

// findCookie はレスポンスから指定名のCookieを探すヘルパー。
func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return &model.User{ID: "user-1", Email: email, IsAnonymous: false}, testSessionFor("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := strings.NewReader(`{"email":"test@example.com","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	cookie := findCookie(resp, "session_id")
	if cookie == nil {
		t.Fatal("expected session_id cookie")
	}
	if cookie.Value != "session-id-abc" {
		t.Errorf("cookie value = %q, want %q", cookie.Value, "session-id-abc")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "user-1" || got.Email != "test@example.com" {
		t.Errorf("user = %+v, want id=user-1 email=test@example.com", got)
	}
	if got.Token != "session-id-abc" {
		t.Errorf("token = %q, want session ID for session restore", got.Token)
	}
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewEmailExistsError(email)
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := strings.NewReader(`{"email":"dup@example.com","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/register", body)
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	var errBody apiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errBody.Code != "AUTH_EMAIL_EXISTS" {
		t.Errorf("error code = %q, want AUTH_EMAIL_EXISTS", errBody.Code)
	}
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("not json"))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return &model.User{ID: "user-1", Email: email}, testSessionFor("user-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := strings.NewReader(`{"email":"test@example.com","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if findCookie(resp, "session_id") == nil {
		t.Error("expected session_id cookie")
	}
}

func TestAuthHandler_Login_InvalidCredential(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewInvalidCredentialError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := strings.NewReader(`{"email":"test@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_SignInAnonymously(t *testing.T) {
	svc := &mockAuthService{
		signInAnonFn: func(ctx context.Context) (*model.User, *model.Session, error) {
			return &model.User{ID: "anon-1", IsAnonymous: true}, testSessionFor("anon-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	req := httptest.NewRequest(http.MethodPost, "/auth/anonymous", nil)
	w := httptest.NewRecorder()

	h.SignInAnonymously(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.IsAnonymous {
		t.Error("expected is_anonymous = true")
	}
	if got.Token == "" {
		t.Error("expected restore token in anonymous sign-in response")
	}
}

func TestAuthHandler_SignInWithToken_Success(t *testing.T) {
	svc := &mockAuthService{
		signInWithTokenFn: func(ctx context.Context, token string) (*model.User, *model.Session, error) {
			if token != "restore-token" {
				t.Errorf("token = %q, want restore-token", token)
			}
			return &model.User{ID: "anon-1", IsAnonymous: true}, testSessionFor("anon-1"), nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 86400})

	body := strings.NewReader(`{"token":"restore-token"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/token", body)
	w := httptest.NewRecorder()

	h.SignInWithToken(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if findCookie(resp, "session_id") == nil {
		t.Error("expected session_id cookie")
	}
}

func TestAuthHandler_SignInWithToken_Invalid(t *testing.T) {
	svc := &mockAuthService{
		signInWithTokenFn: func(ctx context.Context, token string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewAuthFailedError("トークンが無効です")
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := strings.NewReader(`{"token":"expired-token"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/token", body)
	w := httptest.NewRecorder()

	h.SignInWithToken(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	logoutCalled := false
	svc := &mockAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			logoutCalled = true
			if sessionID != "session-123" {
				t.Errorf("sessionID = %q, want session-123", sessionID)
			}
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if !logoutCalled {
		t.Error("expected Logout service call")
	}

	cookie := findCookie(resp, "session_id")
	if cookie == nil {
		t.Fatal("expected clearing session_id cookie")
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want negative (cleared)", cookie.MaxAge)
	}
}

// TestAuthHandler_Logout_WithoutSession はセッションなしのログアウトが
// 冪等に成功することを検証する。
func TestAuthHandler_Logout_WithoutSession(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestAuthHandler_Me_Success(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: "test@example.com"}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-123"})
	w := httptest.NewRecorder()

	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got userResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "user-1" {
		t.Errorf("user ID = %q, want user-1", got.ID)
	}
	// 復元トークンはサインイン時にのみ返す
	if got.Token != "" {
		t.Errorf("token = %q, want empty in /auth/me response", got.Token)
	}
}

func TestAuthHandler_Me_NoCookie(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
