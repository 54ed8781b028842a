package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWhere_NoFilters(t *testing.T) {
	var a args
	assert.Equal(t, "", where(&a, nil, nil))
	assert.Empty(t, a)
}

func TestWhere_CombinesAndOr(t *testing.T) {
	var a args
	got := where(&a,
		[]Filter{Eq("is_admin", true), Eq("deleted_at", nil)},
		[]Filter{ILike("email", "foo"), ILike("full_name", "foo")},
	)

	assert.Equal(t, " WHERE is_admin = $1 AND deleted_at IS NULL AND (email ILIKE $2 OR full_name ILIKE $3)", got)
	assert.Equal(t, args{true, "%foo%", "%foo%"}, a)
}

func TestFilter_NotNullAndAny(t *testing.T) {
	var a args
	got := where(&a, []Filter{IsNotNull("created_at"), Any("account_id", []string{"a", "b"})}, nil)

	assert.Equal(t, " WHERE created_at IS NOT NULL AND account_id = ANY($1)", got)
	assert.Len(t, a, 1)
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Page
		want Page
	}{
		{"ゼロ値はデフォルト", Page{}, Page{Offset: 0, Limit: DefaultLimit}},
		{"負のオフセットは0", Page{Offset: -5, Limit: 10}, Page{Offset: 0, Limit: 10}},
		{"指定値はそのまま", Page{Offset: 20, Limit: 5}, Page{Offset: 20, Limit: 5}},
		{"NoLimitは維持", Page{Limit: NoLimit}, Page{Offset: 0, Limit: NoLimit}},
		{"NoLimit以外の負値はデフォルト", Page{Limit: -7}, Page{Offset: 0, Limit: DefaultLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.normalize())
		})
	}
}

func TestQuery_Render(t *testing.T) {
	var a args
	q := Query{
		Filters: []Filter{Eq("user_id", "u-1")},
		Order:   &Order{Column: "created_at", Asc: false},
		Page:    Page{Offset: 10, Limit: 5},
	}

	got := q.render(&a)

	assert.Equal(t, " WHERE user_id = $1 ORDER BY created_at DESC OFFSET $2 LIMIT $3", got)
	assert.Equal(t, args{"u-1", 10, 5}, a)
}

func TestQuery_Render_NoLimit(t *testing.T) {
	var a args
	q := Query{
		Filters: []Filter{Eq("user_id", "u-1")},
		Order:   &Order{Column: "id", Asc: true},
		Page:    Page{Limit: NoLimit},
	}

	got := q.render(&a)

	assert.Equal(t, " WHERE user_id = $1 ORDER BY id ASC OFFSET $2", got)
	assert.NotContains(t, got, "LIMIT")
	assert.Equal(t, args{"u-1", 0}, a)
}

func TestFields_ColumnsSorted(t *testing.T) {
	f := Fields{"b": 1, "a": 2, "c": 3}
	assert.Equal(t, []string{"a", "b", "c"}, f.columns())
}
