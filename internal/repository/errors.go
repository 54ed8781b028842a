package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// リポジトリ層のセンチネルエラー。サービス層でmodel.APIErrorに変換される。
var (
	// ErrConflict は一意制約または外部キー制約に違反した場合のエラー。
	ErrConflict = errors.New("repository: conflict")
	// ErrNotFound は更新対象の行が存在しない場合のエラー。
	ErrNotFound = errors.New("repository: not found")
	// ErrMultipleRows は1行を期待する操作で複数行が一致した場合のエラー。
	ErrMultipleRows = errors.New("repository: multiple rows")
	// ErrOwnerMismatch はアカウントの所有者とトランザクションのユーザーが異なる場合のエラー。
	ErrOwnerMismatch = errors.New("repository: account owner mismatch")
)

// PostgreSQLのエラーコード
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError はlib/pqのエラーをセンチネルエラーに変換する。
// 対象外のエラーはopを付けてラップする。
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation, pqForeignKeyViolation:
			return fmt.Errorf("%s: %w (%s)", op, ErrConflict, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
