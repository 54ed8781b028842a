package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/tradeledger/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Create(ctx context.Context, in model.UserCreate) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, q model.UserQuery) (*model.UserList, error)
	// Update はユーザーを部分更新する。allowAdminがfalseの場合is_adminは無視される。
	Update(ctx context.Context, id string, patch model.UserPatch, allowAdmin bool) (*model.User, error)
	Delete(ctx context.Context, id string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userResponse は一般ユーザー向けのユーザー情報。
type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// adminUserResponse は管理者向けのユーザー情報。
type adminUserResponse struct {
	userResponse
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type userListResponse struct {
	Count int                 `json:"count"`
	Users []adminUserResponse `json:"users"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	IsAdmin  bool   `json:"is_admin"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, FullName: u.FullName}
}

func toAdminUserResponse(u *model.User) adminUserResponse {
	return adminUserResponse{
		userResponse: toUserResponse(u),
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// Me は認証済みユーザーの情報を返す。
// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe は認証済みユーザー自身の情報を部分更新する。is_adminは変更できない。
// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var patch model.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.service.Update(r.Context(), user.ID, patch, false)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(updated))
}

// GetUser は指定IDのユーザー情報を返す。
// GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListUsers はクエリパラメータで絞り込んだユーザー一覧を返す。
// GET /api/v1/users?email=&full_name=&is_admin=&asc=&offset=&limit=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseUserQuery(r.URL.Query())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError(err.Error()))
		return
	}

	list, err := h.service.List(r.Context(), q)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := userListResponse{Count: list.Count, Users: make([]adminUserResponse, 0, len(list.Users))}
	for _, u := range list.Users {
		resp.Users = append(resp.Users, toAdminUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateUser は管理者によるユーザー作成を処理する。
// POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Create(r.Context(), model.UserCreate{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAdminUserResponse(user))
}

// UpdateUser は管理者によるユーザー更新を処理する。
// PUT /api/v1/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var patch model.UserPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	user, err := h.service.Update(r.Context(), id, patch, true)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAdminUserResponse(user))
}

// DeleteUser は管理者によるユーザー削除を処理する。
// DELETE /api/v1/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseUserQuery はユーザー一覧のクエリパラメータを解析する。
func parseUserQuery(values url.Values) (model.UserQuery, error) {
	q := model.UserQuery{
		Email:    values.Get("email"),
		FullName: values.Get("full_name"),
	}

	if v := values.Get("is_admin"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errInvalidQuery("is_admin")
		}
		q.IsAdmin = &b
	}
	if v := values.Get("asc"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errInvalidQuery("asc")
		}
		q.Asc = b
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errInvalidQuery("offset")
		}
		q.Offset = n
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, errInvalidQuery("limit")
		}
		q.Limit = n
	}

	return q, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string {
	return "invalid query parameter: " + string(e)
}
