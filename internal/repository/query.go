package repository

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// デフォルトのページサイズ
const (
	DefaultOffset = 0
	DefaultLimit  = 100
)

// NoLimit はLIMIT句を付けずに全件を返すPage.Limitの値。
const NoLimit = -1

// Fields はカラム名と値の組。
// キーが存在しないカラムは書き込まれない。INSERTではnilの値はNULLとして書き込まれる。
type Fields map[string]any

// columns はキーをソートして返す。生成するSQLを決定的にするため。
func (f Fields) columns() []string {
	return slices.Sorted(maps.Keys(f))
}

type filterOp int

const (
	opEq filterOp = iota
	opILike
	opNotNull
	opAny
)

// Filter はWHERE句の1条件を表す。
type Filter struct {
	Column string
	op     filterOp
	Value  any
}

// Eq はカラムの完全一致条件を返す。値がnilの場合はIS NULLとなる。
func Eq(column string, value any) Filter {
	return Filter{Column: column, op: opEq, Value: value}
}

// ILike は大文字小文字を区別しない部分一致条件を返す。
func ILike(column, substr string) Filter {
	return Filter{Column: column, op: opILike, Value: "%" + substr + "%"}
}

// IsNotNull はカラムがNULLでない条件を返す。
func IsNotNull(column string) Filter {
	return Filter{Column: column, op: opNotNull}
}

// Any はカラムが配列のいずれかに一致する条件を返す。
func Any(column string, values []string) Filter {
	return Filter{Column: column, op: opAny, Value: pq.Array(values)}
}

// Page はオフセットと件数の組。
type Page struct {
	Offset int
	Limit  int
}

// normalize はゼロ値や負値をデフォルトに置き換える。NoLimitはそのまま残す。
func (p Page) normalize() Page {
	if p.Offset < 0 {
		p.Offset = DefaultOffset
	}
	if p.Limit <= 0 && p.Limit != NoLimit {
		p.Limit = DefaultLimit
	}
	return p
}

// Order は並び順を表す。
type Order struct {
	Column string
	Asc    bool
}

// Query はSELECTの条件一式を表す。
// Filtersは全てAND、AnyOfは互いにORで結合した上でFiltersとANDで結合する。
type Query struct {
	Filters []Filter
	AnyOf   []Filter
	Order   *Order
	Page    Page
}

// args はプレースホルダの引数を蓄積する。
type args []any

// bind は値を追加して対応するプレースホルダ（$n）を返す。
func (a *args) bind(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func (f Filter) render(a *args) string {
	switch f.op {
	case opILike:
		return fmt.Sprintf("%s ILIKE %s", f.Column, a.bind(f.Value))
	case opNotNull:
		return f.Column + " IS NOT NULL"
	case opAny:
		return fmt.Sprintf("%s = ANY(%s)", f.Column, a.bind(f.Value))
	default:
		if f.Value == nil {
			return f.Column + " IS NULL"
		}
		return fmt.Sprintf("%s = %s", f.Column, a.bind(f.Value))
	}
}

// where はWHERE句を生成する。条件がない場合は空文字列を返す。
func where(a *args, filters []Filter, anyOf []Filter) string {
	var conds []string
	for _, f := range filters {
		conds = append(conds, f.render(a))
	}
	if len(anyOf) > 0 {
		ors := make([]string, 0, len(anyOf))
		for _, f := range anyOf {
			ors = append(ors, f.render(a))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// render はQueryのWHERE以降（ORDER BY, OFFSET, LIMIT）を生成する。
func (q Query) render(a *args) string {
	var sb strings.Builder
	sb.WriteString(where(a, q.Filters, q.AnyOf))
	if q.Order != nil {
		dir := "DESC"
		if q.Order.Asc {
			dir = "ASC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", q.Order.Column, dir)
	}
	page := q.Page.normalize()
	fmt.Fprintf(&sb, " OFFSET %s", a.bind(page.Offset))
	if page.Limit != NoLimit {
		fmt.Fprintf(&sb, " LIMIT %s", a.bind(page.Limit))
	}
	return sb.String()
}
