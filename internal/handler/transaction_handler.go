package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tradeledger/internal/model"
)

// TransactionServiceInterface はトランザクションハンドラーが必要とするサービスインターフェース。
type TransactionServiceInterface interface {
	Create(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error)
}

// TransactionHandler はトランザクションのHTTPハンドラー。
type TransactionHandler struct {
	service TransactionServiceInterface
}

// NewTransactionHandler はTransactionHandlerを生成する。
func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

type createTransactionRequest struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Amount    *int64 `json:"amount"`
	Signature string `json:"signature"`
}

type transactionResponse struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	Signature string `json:"signature"`
}

func toTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		AccountID: t.AccountID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Signature: t.Signature,
	}
}

func toTransactionListResponse(txs []*model.Transaction) []transactionResponse {
	resp := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, toTransactionResponse(t))
	}
	return resp
}

// ListMine は認証済みユーザーのトランザクション一覧を返す。
// GET /api/v1/transactions
func (h *TransactionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	txs, err := h.service.ListByUser(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionListResponse(txs))
}

// ListByUser は指定ユーザーのトランザクション一覧を返す。
// GET /api/v1/transactions/{user_id}
func (h *TransactionHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "user_id")
	if !ok {
		return
	}

	txs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionListResponse(txs))
}

// Create は署名付きトランザクションの作成を処理する。
// POST /api/v1/transactions
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Amount == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("amount is required"))
		return
	}

	entry, err := h.service.Create(r.Context(), model.TransactionCreate{
		ID:        req.ID,
		AccountID: req.AccountID,
		UserID:    req.UserID,
		Amount:    *req.Amount,
		Signature: req.Signature,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(entry.Transaction))
}
