package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tradeledger/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Create(ctx context.Context, in model.AccountCreate) (*model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	ListByUser(ctx context.Context, userID string) ([]*model.AccountWithTransactions, error)
}

// AccountHandler はアカウントのHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

type createAccountRequest struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	UserID  string `json:"user_id"`
}

type accountResponse struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
	UserID  string `json:"user_id"`
}

type accountWithTransactionsResponse struct {
	accountResponse
	Transactions []transactionResponse `json:"transactions"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{ID: a.ID, Balance: a.Balance, UserID: a.UserID}
}

func toAccountListResponse(accounts []*model.AccountWithTransactions) []accountWithTransactionsResponse {
	resp := make([]accountWithTransactionsResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, accountWithTransactionsResponse{
			accountResponse: toAccountResponse(&a.Account),
			Transactions:    toTransactionListResponse(a.Transactions),
		})
	}
	return resp
}

// ListMine は認証済みユーザーのアカウント一覧を返す。
// GET /api/v1/accounts
func (h *AccountHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.service.ListByUser(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountListResponse(accounts))
}

// ListByUser は指定ユーザーのアカウント一覧を返す。
// GET /api/v1/accounts/{user_id}
func (h *AccountHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "user_id")
	if !ok {
		return
	}

	accounts, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountListResponse(accounts))
}

// Get は指定IDのアカウントを返す。
// 他人のアカウントは管理者以外には存在しないものとして404を返す。
// GET /api/v1/accounts/id/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if account.UserID != user.ID && !user.IsAdmin {
		handleServiceError(w, model.NewAccountNotFoundError(id))
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Create は管理者によるアカウント作成を処理する。
// POST /api/v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.service.Create(r.Context(), model.AccountCreate{
		ID:      req.ID,
		Balance: req.Balance,
		UserID:  req.UserID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}
