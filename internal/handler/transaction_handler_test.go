package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/tradeledger/internal/model"
)

type mockTransactionService struct {
	createFn     func(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error)
	listByUserFn func(ctx context.Context, userID string) ([]*model.Transaction, error)
}

func (m *mockTransactionService) Create(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockTransactionService) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID)
	}
	return []*model.Transaction{}, nil
}

const testTransactionBody = `{"id":"tx-1","account_id":"acc-1","user_id":"` + testUserID + `","amount":-25,"signature":"abc"}`

func TestTransactionHandler_Create(t *testing.T) {
	var got model.TransactionCreate
	svc := &mockTransactionService{
		createFn: func(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error) {
			got = in
			return &model.LedgerEntry{
				Transaction: &model.Transaction{
					ID: in.ID, AccountID: in.AccountID, UserID: in.UserID, Amount: in.Amount, Signature: in.Signature,
				},
				AccountCreated: true,
				Balance:        -25,
			}, nil
		},
	}
	h := NewTransactionHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(testTransactionBody))
	w := httptest.NewRecorder()

	h.Create(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got.Amount != -25 || got.Signature != "abc" || got.AccountID != "acc-1" {
		t.Errorf("input = %+v", got)
	}

	var body transactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ID != "tx-1" || body.Amount != -25 {
		t.Errorf("body = %+v", body)
	}
}

func TestTransactionHandler_Create_MissingAmount(t *testing.T) {
	h := NewTransactionHandler(&mockTransactionService{
		createFn: func(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions",
		strings.NewReader(`{"id":"tx-1","account_id":"acc-1","user_id":"`+testUserID+`","signature":"abc"}`))
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTransactionHandler_Create_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"invalid signature", model.NewInvalidSignatureError(), http.StatusBadRequest, model.ErrCodeInvalidSignature},
		{"owner mismatch", model.NewTransactionUserMismatchError("acc-1"), http.StatusBadRequest, model.ErrCodeTransactionUserMismatch},
		{"duplicate", model.NewTransactionConflictError("tx-1"), http.StatusConflict, model.ErrCodeTransactionConflict},
		{"unknown user", model.NewUserNotFoundError(), http.StatusNotFound, model.ErrCodeUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockTransactionService{
				createFn: func(ctx context.Context, in model.TransactionCreate) (*model.LedgerEntry, error) {
					return nil, tt.err
				},
			}
			h := NewTransactionHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(testTransactionBody))
			w := httptest.NewRecorder()

			h.Create(w, req)

			resp := w.Result()
			if resp.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if code := decodeErrorCode(t, resp); code != tt.wantErr {
				t.Errorf("code = %q, want %q", code, tt.wantErr)
			}
		})
	}
}

func TestTransactionHandler_ListMine(t *testing.T) {
	svc := &mockTransactionService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.Transaction, error) {
			return []*model.Transaction{{ID: "tx-1", AccountID: "acc-1", UserID: userID, Amount: 5, Signature: "s"}}, nil
		},
	}
	h := NewTransactionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req = withUser(req, testUser())
	w := httptest.NewRecorder()

	h.ListMine(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body []transactionResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body[0].UserID != testUserID {
		t.Errorf("body = %+v", body)
	}
}

func TestTransactionHandler_ListByUser_NotFound(t *testing.T) {
	svc := &mockTransactionService{
		listByUserFn: func(ctx context.Context, userID string) ([]*model.Transaction, error) {
			return nil, model.NewTransactionNotFoundError()
		},
	}
	h := NewTransactionHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/"+testUserID, nil)
	req = withChiURLParam(req, "user_id", testUserID)
	w := httptest.NewRecorder()

	h.ListByUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
