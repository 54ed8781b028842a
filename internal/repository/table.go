package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"
)

// txBeginner はsqlx.DBのようにトランザクションを開始できる接続。
type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// Table は1つのテーブルに対する汎用CRUD操作を提供する。
// Tはdbタグ付きの行構造体。dbはプール（*sqlx.DB）とトランザクション（*sqlx.Tx）のどちらでもよい。
type Table[T any] struct {
	db      sqlx.ExtContext
	name    string
	columns []string
}

// NewTable はTableを生成する。columnsはSELECTとRETURNINGで返すカラム。
func NewTable[T any](db sqlx.ExtContext, name string, columns ...string) *Table[T] {
	return &Table[T]{db: db, name: name, columns: columns}
}

// WithTx はトランザクションに束縛したTableのコピーを返す。
func (t *Table[T]) WithTx(tx *sqlx.Tx) *Table[T] {
	return &Table[T]{db: tx, name: t.name, columns: t.columns}
}

func (t *Table[T]) selectList() string {
	return strings.Join(t.columns, ", ")
}

// Insert はFieldsに含まれるカラムのみを書き込み、挿入した行を返す。
func (t *Table[T]) Insert(ctx context.Context, fields Fields) (*T, error) {
	var a args
	cols := fields.columns()

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", t.name, t.selectList())
	} else {
		placeholders := make([]string, 0, len(cols))
		for _, c := range cols {
			placeholders = append(placeholders, a.bind(fields[c]))
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			t.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), t.selectList())
	}

	row := new(T)
	if err := sqlx.GetContext(ctx, t.db, row, query, a...); err != nil {
		return nil, translateError("insert into "+t.name, err)
	}
	return row, nil
}

// FindOne は条件に一致する1行を返す。見つからない場合はnilを返す。
// 複数行が一致した場合はErrMultipleRowsを返す。
func (t *Table[T]) FindOne(ctx context.Context, filters ...Filter) (*T, error) {
	var a args
	query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT 2", t.selectList(), t.name, where(&a, filters, nil))

	var rows []*T
	if err := sqlx.SelectContext(ctx, t.db, &rows, query, a...); err != nil {
		return nil, translateError("find one in "+t.name, err)
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("find one in %s: %w", t.name, ErrMultipleRows)
	}
}

// Select はQueryに一致する行を返す。該当なしの場合は空スライスを返す。
func (t *Table[T]) Select(ctx context.Context, q Query) ([]*T, error) {
	var a args
	query := fmt.Sprintf("SELECT %s FROM %s%s", t.selectList(), t.name, q.render(&a))

	rows := []*T{}
	if err := sqlx.SelectContext(ctx, t.db, &rows, query, a...); err != nil {
		return nil, translateError("select from "+t.name, err)
	}
	return rows, nil
}

// FindAll は完全一致条件でページ分割した行を返す。
func (t *Table[T]) FindAll(ctx context.Context, page Page, filters ...Filter) ([]*T, error) {
	return t.Select(ctx, Query{Filters: filters, Page: page})
}

// FindAllILike はsearchの各カラムの部分一致をORで結合し、完全一致条件とANDで結合して検索する。
func (t *Table[T]) FindAllILike(ctx context.Context, search Fields, page Page, filters ...Filter) ([]*T, error) {
	var anyOf []Filter
	for _, c := range search.columns() {
		anyOf = append(anyOf, ILike(c, fmt.Sprint(search[c])))
	}
	return t.Select(ctx, Query{Filters: filters, AnyOf: anyOf, Page: page})
}

// FindAllSorted はソートカラムがNULLでない行を並べ替えて返す。
func (t *Table[T]) FindAllSorted(ctx context.Context, sortColumn string, asc bool, limit int, filters ...Filter) ([]*T, error) {
	q := Query{
		Filters: append(slices.Clone(filters), IsNotNull(sortColumn)),
		Order:   &Order{Column: sortColumn, Asc: asc},
		Page:    Page{Limit: limit},
	}
	return t.Select(ctx, q)
}

// Update は条件に一致するちょうど1行を更新して返す。
// setのうちnilの値は更新対象から除外する。
// 0行の場合はErrNotFound、複数行の場合はErrMultipleRowsを返し、変更はロールバックされる。
func (t *Table[T]) Update(ctx context.Context, set Fields, filters ...Filter) (*T, error) {
	if b, ok := t.db.(txBeginner); ok {
		tx, err := b.BeginTxx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		row, err := t.WithTx(tx).Update(ctx, set, filters...)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return row, nil
	}

	var a args
	var assignments []string
	for _, c := range set.columns() {
		if set[c] == nil {
			continue
		}
		assignments = append(assignments, fmt.Sprintf("%s = %s", c, a.bind(set[c])))
	}

	var rows []*T
	if len(assignments) == 0 {
		// 更新対象がない場合も一致行数の検証は行う
		query := fmt.Sprintf("SELECT %s FROM %s%s LIMIT 2", t.selectList(), t.name, where(&a, filters, nil))
		if err := sqlx.SelectContext(ctx, t.db, &rows, query, a...); err != nil {
			return nil, translateError("update "+t.name, err)
		}
	} else {
		query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING %s",
			t.name, strings.Join(assignments, ", "), where(&a, filters, nil), t.selectList())
		if err := sqlx.SelectContext(ctx, t.db, &rows, query, a...); err != nil {
			return nil, translateError("update "+t.name, err)
		}
	}

	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("update %s: %w", t.name, ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("update %s: %w", t.name, ErrMultipleRows)
	}
}

// Delete は条件に一致する行を削除し、削除件数を返す。該当なしはエラーにしない。
func (t *Table[T]) Delete(ctx context.Context, filters ...Filter) (int64, error) {
	var a args
	query := fmt.Sprintf("DELETE FROM %s%s", t.name, where(&a, filters, nil))

	result, err := t.db.ExecContext(ctx, query, a...)
	if err != nil {
		return 0, translateError("delete from "+t.name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Count は完全一致条件に一致する行数を返す。
func (t *Table[T]) Count(ctx context.Context, filters ...Filter) (int, error) {
	return t.CountQuery(ctx, Query{Filters: filters})
}

// CountQuery はQueryの条件に一致する行数を返す。並び順とページ指定は無視する。
func (t *Table[T]) CountQuery(ctx context.Context, q Query) (int, error) {
	var a args
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", t.name, where(&a, q.Filters, q.AnyOf))

	var n int
	if err := sqlx.GetContext(ctx, t.db, &n, query, a...); err != nil {
		return 0, translateError("count "+t.name, err)
	}
	return n, nil
}
