package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tradeledger/internal/middleware"
	"github.com/hitoshi/tradeledger/internal/model"
)

const (
	testUserID  = "6f1c2a8e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"
	testAdminID = "0b9a8c7d-6e5f-4a3b-9c2d-1e0f9a8b7c6d"
)

// withChiURLParam はchiのURLパラメータをリクエストのコンテキストに設定する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withUser は認証済みユーザーをリクエストのコンテキストに注入する。
func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(middleware.ContextWithUser(r.Context(), user))
}

func testUser() *model.User {
	return &model.User{ID: testUserID, Email: "alice@example.com", FullName: "Alice"}
}

func testAdmin() *model.User {
	return &model.User{ID: testAdminID, Email: "admin@example.com", FullName: "Admin", IsAdmin: true}
}

// decodeErrorCode はエラーレスポンスのcodeを取り出す。
func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body.Code
}
