package transaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/tradeledger/internal/model"
	"github.com/hitoshi/tradeledger/internal/repository"
	"github.com/hitoshi/tradeledger/internal/security"
)

const (
	testSecret    = "signature-secret"
	testUserID    = "6f1c2f4e-3b7a-4c1d-9a55-2f0b7a1e9c01"
	otherUserID   = "0b8e7d1a-5f2c-4e3b-8a9d-1c2b3a4f5e6d"
	testAccountID = "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11"
)

// --- フェイク ---

// memLedger はPostgresLedgerRepoと同じ原子性の契約を満たすインメモリ実装。
// 1回のApplyは全て成功するか、何も変更しないかのどちらか。
type memLedger struct {
	mu       sync.Mutex
	accounts map[string]*model.Account
	txs      map[string]*model.Transaction
	order    []string
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: make(map[string]*model.Account),
		txs:      make(map[string]*model.Transaction),
	}
}

func (l *memLedger) Apply(_ context.Context, t *model.Transaction) (*model.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, exists := l.accounts[t.AccountID]
	if exists && account.UserID != t.UserID {
		return nil, fmt.Errorf("account %s: %w", t.AccountID, repository.ErrOwnerMismatch)
	}
	if _, dup := l.txs[t.ID]; dup {
		return nil, fmt.Errorf("insert into transactions: %w (transactions_pkey)", repository.ErrConflict)
	}

	if !exists {
		account = &model.Account{ID: t.AccountID, UserID: t.UserID}
		l.accounts[t.AccountID] = account
	}
	recorded := *t
	recorded.CreatedAt = time.Now()
	l.txs[t.ID] = &recorded
	l.order = append(l.order, t.ID)
	account.Balance += t.Amount

	return &model.LedgerEntry{Transaction: &recorded, AccountCreated: !exists, Balance: account.Balance}, nil
}

func (l *memLedger) ListByUserID(_ context.Context, userID string) ([]*model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*model.Transaction
	for _, id := range l.order {
		if tx := l.txs[id]; tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (l *memLedger) ListByAccountIDs(_ context.Context, _ []string) ([]*model.Transaction, error) {
	return nil, nil
}

func (l *memLedger) balance(accountID string) (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[accountID]
	if !ok {
		return 0, false
	}
	return a.Balance, true
}

type mockUserRepo struct {
	users map[string]bool
	err   error
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.users[id] {
		return &model.User{ID: id}, nil
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(context.Context, string) (*model.User, error) { return nil, nil }
func (m *mockUserRepo) Create(_ context.Context, u *model.User) (*model.User, error) {
	return u, nil
}
func (m *mockUserRepo) List(context.Context, model.UserQuery) (*model.UserList, error) {
	return &model.UserList{}, nil
}
func (m *mockUserRepo) Update(context.Context, string, model.UserChanges) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) DeleteByID(context.Context, string) error { return nil }

type recordingCollector struct {
	mu       sync.Mutex
	created  int
	rejected map[string]int
}

func (c *recordingCollector) RecordHTTPStatus(int)                       {}
func (c *recordingCollector) RecordRequestLatency(string, time.Duration) {}
func (c *recordingCollector) RecordTransactionCreated(bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
}
func (c *recordingCollector) RecordTransactionRejected(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rejected == nil {
		c.rejected = make(map[string]int)
	}
	c.rejected[reason]++
}

// --- ヘルパー ---

type fixture struct {
	svc       *Service
	ledger    *memLedger
	collector *recordingCollector
}

func newFixture() *fixture {
	ledger := newMemLedger()
	collector := &recordingCollector{}
	users := &mockUserRepo{users: map[string]bool{testUserID: true, otherUserID: true}}
	return &fixture{
		svc:       NewService(ledger, ledger, users, testSecret, collector),
		ledger:    ledger,
		collector: collector,
	}
}

func signed(id, accountID, userID string, amount int64) model.TransactionCreate {
	return model.TransactionCreate{
		ID:        id,
		AccountID: accountID,
		UserID:    userID,
		Amount:    amount,
		Signature: security.Signature(accountID, amount, id, userID, testSecret),
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- Create ---

// TestCreate_AutoCreatesAccount は存在しないアカウントが残高0で作成されてから加算されることを検証する。
func TestCreate_AutoCreatesAccount(t *testing.T) {
	f := newFixture()

	entry, err := f.svc.Create(context.Background(), signed("tx-1", testAccountID, testUserID, 250))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !entry.AccountCreated {
		t.Error("AccountCreated = false, want true")
	}
	if entry.Balance != 250 {
		t.Errorf("Balance = %d, want 250", entry.Balance)
	}
	if entry.Transaction.ID != "tx-1" {
		t.Errorf("Transaction.ID = %q, want %q", entry.Transaction.ID, "tx-1")
	}
	if f.collector.created != 1 {
		t.Errorf("created metric = %d, want 1", f.collector.created)
	}
}

func TestCreate_NegativeAmountOnExistingAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, signed("tx-1", testAccountID, testUserID, 100)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	entry, err := f.svc.Create(ctx, signed("tx-2", testAccountID, testUserID, -300))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if entry.AccountCreated {
		t.Error("AccountCreated = true, want false for existing account")
	}
	if entry.Balance != -200 {
		t.Errorf("Balance = %d, want -200", entry.Balance)
	}
}

// TestCreate_DuplicateIDDoesNotDoubleCredit は同一IDの再送がConflictとなり残高が変わらないことを検証する。
func TestCreate_DuplicateIDDoesNotDoubleCredit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	in := signed("tx-1", testAccountID, testUserID, 100)

	if _, err := f.svc.Create(ctx, in); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}
	_, err := f.svc.Create(ctx, in)
	assertCode(t, err, model.ErrCodeTransactionConflict)

	if balance, _ := f.ledger.balance(testAccountID); balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
	if f.collector.rejected[RejectConflict] != 1 {
		t.Errorf("conflict rejections = %d, want 1", f.collector.rejected[RejectConflict])
	}
}

// TestCreate_TamperedSignature は署名が一致しない場合に何も永続化されないことを検証する。
func TestCreate_TamperedSignature(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(in *model.TransactionCreate)
	}{
		{"金額の改ざん", func(in *model.TransactionCreate) { in.Amount = 1_000_000 }},
		{"アカウントの改ざん", func(in *model.TransactionCreate) { in.AccountID = "b0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11" }},
		{"ユーザーの改ざん", func(in *model.TransactionCreate) { in.UserID = otherUserID }},
		{"IDの改ざん", func(in *model.TransactionCreate) { in.ID = "tx-2" }},
		{"署名の改ざん", func(in *model.TransactionCreate) { in.Signature = "deadbeef" }},
		{"異なるシークレット", func(in *model.TransactionCreate) {
			in.Signature = security.Signature(in.AccountID, in.Amount, in.ID, in.UserID, "other-secret")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			in := signed("tx-1", testAccountID, testUserID, 100)
			tt.tamper(&in)

			_, err := f.svc.Create(context.Background(), in)
			assertCode(t, err, model.ErrCodeInvalidSignature)

			if len(f.ledger.accounts) != 0 || len(f.ledger.txs) != 0 {
				t.Errorf("state persisted after rejection: accounts=%d txs=%d", len(f.ledger.accounts), len(f.ledger.txs))
			}
			if f.collector.rejected[RejectInvalidSignature] != 1 {
				t.Errorf("invalid_signature rejections = %d, want 1", f.collector.rejected[RejectInvalidSignature])
			}
		})
	}
}

func TestCreate_OwnerMismatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, signed("tx-1", testAccountID, testUserID, 100)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	_, err := f.svc.Create(ctx, signed("tx-2", testAccountID, otherUserID, 50))
	assertCode(t, err, model.ErrCodeTransactionUserMismatch)

	if balance, _ := f.ledger.balance(testAccountID); balance != 100 {
		t.Errorf("balance = %d, want 100", balance)
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	f := newFixture()
	unknown := "11111111-2222-4333-8444-555555555555"

	_, err := f.svc.Create(context.Background(), signed("tx-1", testAccountID, unknown, 10))
	assertCode(t, err, model.ErrCodeUserNotFound)

	if _, ok := f.ledger.balance(testAccountID); ok {
		t.Error("account should not be created for unknown user")
	}
}

func TestCreate_InvalidRequest(t *testing.T) {
	f := newFixture()

	t.Run("IDなし", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), signed("  ", testAccountID, testUserID, 10))
		assertCode(t, err, model.ErrCodeInvalidRequest)
	})

	t.Run("UUIDでないアカウントID", func(t *testing.T) {
		_, err := f.svc.Create(context.Background(), signed("tx-1", "not-a-uuid", testUserID, 10))
		assertCode(t, err, model.ErrCodeInvalidRequest)
	})
}

// TestCreate_RejectsUnstorableIDs は署名が正しくても、保存値と署名対象が食い違うIDや
// カラム長を超えるIDを永続化前に400で拒否することを検証する。
func TestCreate_RejectsUnstorableIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"末尾の空白", "tx-1 "},
		{"先頭の空白", " tx-1"},
		{"タブと改行", "\ttx-1\n"},
		{"最大長超過", strings.Repeat("x", maxIDLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			_, err := f.svc.Create(context.Background(), signed(tt.id, testAccountID, testUserID, 10))
			assertCode(t, err, model.ErrCodeInvalidRequest)

			if len(f.ledger.txs) != 0 {
				t.Errorf("transactions persisted = %d, want 0", len(f.ledger.txs))
			}
			if f.collector.rejected[RejectInvalidRequest] != 1 {
				t.Errorf("invalid_request rejections = %d, want 1", f.collector.rejected[RejectInvalidRequest])
			}
		})
	}
}

func TestCreate_MaxLengthIDIsStoredAsSigned(t *testing.T) {
	f := newFixture()
	id := strings.Repeat("あ", maxIDLength)

	entry, err := f.svc.Create(context.Background(), signed(id, testAccountID, testUserID, 10))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stored := entry.Transaction
	if stored.ID != id {
		t.Fatalf("stored ID differs from signed ID")
	}
	if !security.VerifySignature(stored.Signature, stored.AccountID, stored.Amount, stored.ID, stored.UserID, testSecret) {
		t.Error("stored row does not reproduce its signature")
	}
}

// TestCreate_NormalizesUUIDs は大文字で送られたUUIDが既存アカウントと同一視されることを検証する。
func TestCreate_NormalizesUUIDs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, signed("tx-1", testAccountID, testUserID, 10)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	upper := signed("tx-2", "A0EEBC99-9C0B-4EF8-BB6D-6BB9BD380A11", "6F1C2F4E-3B7A-4C1D-9A55-2F0B7A1E9C01", 5)
	entry, err := f.svc.Create(ctx, upper)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.AccountCreated {
		t.Error("AccountCreated = true, want false")
	}
	if entry.Balance != 15 {
		t.Errorf("Balance = %d, want 15", entry.Balance)
	}
}

// TestCreate_ConcurrentConverges は同一アカウントへの並行作成が金額の合計に収束することを検証する。
func TestCreate_ConcurrentConverges(t *testing.T) {
	f := newFixture()
	const workers = 50

	var wg sync.WaitGroup
	var want int64
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		amount := int64(i*7 - 100)
		want += amount
		wg.Add(1)
		go func(i int, amount int64) {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), signed(fmt.Sprintf("tx-%d", i), testAccountID, testUserID, amount))
			if err != nil {
				errs <- err
			}
		}(i, amount)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Create() error = %v", err)
	}
	if balance, _ := f.ledger.balance(testAccountID); balance != want {
		t.Errorf("balance = %d, want %d", balance, want)
	}
	if f.collector.created != workers {
		t.Errorf("created metric = %d, want %d", f.collector.created, workers)
	}
}

func TestCreate_LedgerError(t *testing.T) {
	users := &mockUserRepo{err: errors.New("db down")}
	svc := NewService(newMemLedger(), newMemLedger(), users, testSecret, nil)

	_, err := svc.Create(context.Background(), signed("tx-1", testAccountID, testUserID, 1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		t.Errorf("unexpected APIError: %v", apiErr)
	}
}

// --- ListByUser ---

func TestListByUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i, amount := range []int64{10, 20} {
		if _, err := f.svc.Create(ctx, signed(fmt.Sprintf("tx-%d", i), testAccountID, testUserID, amount)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	txs, err := f.svc.ListByUser(ctx, testUserID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(txs) != 2 || txs[0].ID != "tx-0" || txs[1].ID != "tx-1" {
		t.Errorf("ListByUser() = %v, want [tx-0 tx-1]", txs)
	}

	t.Run("トランザクションのないユーザー", func(t *testing.T) {
		txs, err := f.svc.ListByUser(ctx, otherUserID)
		if err != nil {
			t.Fatalf("ListByUser() error = %v", err)
		}
		if txs == nil || len(txs) != 0 {
			t.Errorf("ListByUser() = %v, want empty non-nil slice", txs)
		}
	})

	t.Run("存在しないユーザー", func(t *testing.T) {
		_, err := f.svc.ListByUser(ctx, "11111111-2222-4333-8444-555555555555")
		assertCode(t, err, model.ErrCodeTransactionNotFound)
	})
}
