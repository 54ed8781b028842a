package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/tradeledger/internal/model"
)

// mockAuthenticator はUserAuthenticatorのモック。
type mockAuthenticator struct {
	currentUserFn func(ctx context.Context, accessToken string) (*model.User, error)
}

func (m *mockAuthenticator) CurrentUser(ctx context.Context, accessToken string) (*model.User, error) {
	if m.currentUserFn != nil {
		return m.currentUserFn(ctx, accessToken)
	}
	return nil, model.NewInvalidTokenError()
}

func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

// TestAuthMiddleware_InjectsUser は有効なトークンで認証済みユーザーがコンテキストに注入されることを検証する。
func TestAuthMiddleware_InjectsUser(t *testing.T) {
	var gotToken string
	authenticator := &mockAuthenticator{
		currentUserFn: func(_ context.Context, token string) (*model.User, error) {
			gotToken = token
			return &model.User{ID: "user-1", Email: "user@example.com"}, nil
		},
	}

	var captured *model.User
	handler := NewAuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set(AuthHeader, "Bearer abc.def.ghi")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotToken != "Bearer abc.def.ghi" {
		t.Errorf("token = %q, want header value passed through", gotToken)
	}
	if captured == nil || captured.ID != "user-1" {
		t.Errorf("user in context = %+v, want user-1", captured)
	}
}

// TestAuthMiddleware_Failures は認証失敗時のステータスとエラーコードを検証する。
func TestAuthMiddleware_Failures(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ヘッダーなし", "", nil, http.StatusUnauthorized, model.ErrCodeInvalidToken},
		{"無効なトークン", "Bearer bad", model.NewInvalidTokenError(), http.StatusUnauthorized, model.ErrCodeInvalidToken},
		{"期限切れ", "Bearer old", model.NewTokenExpiredError(), http.StatusUnauthorized, model.ErrCodeTokenExpired},
		{"内部エラー", "Bearer ok", errors.New("db down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator := &mockAuthenticator{
				currentUserFn: func(_ context.Context, _ string) (*model.User, error) {
					return nil, tt.err
				},
			}
			handler := NewAuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeader, tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if code := decodeErrorCode(t, w); code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

// TestAuthMiddleware_IgnoresAuthorizationHeader は標準のAuthorizationヘッダーを受け付けないことを検証する。
func TestAuthMiddleware_IgnoresAuthorizationHeader(t *testing.T) {
	authenticator := &mockAuthenticator{
		currentUserFn: func(_ context.Context, _ string) (*model.User, error) {
			return &model.User{ID: "user-1"}, nil
		},
	}
	handler := NewAuthMiddleware(authenticator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name       string
		user       *model.User
		wantStatus int
	}{
		{"管理者", &model.User{ID: "admin-1", IsAdmin: true}, http.StatusOK},
		{"一般ユーザー", &model.User{ID: "user-1"}, http.StatusForbidden},
		{"未認証", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/x", nil)
			if tt.user != nil {
				req = req.WithContext(ContextWithUser(req.Context(), tt.user))
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Error("expected no user ID in empty context")
	}

	ctx := ContextWithUser(context.Background(), &model.User{ID: "user-9"})
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-9" {
		t.Errorf("UserIDFromContext() = %q, %v, want user-9, true", id, ok)
	}
}
