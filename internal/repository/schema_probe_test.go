package repository

import (
	"errors"
	"reflect"
	"testing"
)

func TestFilterToColumns(t *testing.T) {
	candidate := map[string]interface{}{
		"fund_id":     "x",
		"land_value":  100,
		"novel_field": true,
		"created_at":  "2024-01-01",
	}
	cols := []string{"fund_id", "land_value", "total_profits"}

	got := filterToColumns(candidate, cols)

	want := map[string]interface{}{"fund_id": "x", "land_value": 100}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("filterToColumns = %v, want %v", got, want)
	}
}

func TestFilterToColumnsEmptyIntersection(t *testing.T) {
	got := filterToColumns(map[string]interface{}{"a": 1}, []string{"b", "c"})
	if len(got) != 0 {
		t.Errorf("disjoint sets should produce an empty payload, got %v", got)
	}
}

func TestBuildInsertDeterministicOrder(t *testing.T) {
	payload := map[string]interface{}{
		"zeta":  3,
		"alpha": 1,
		"mid":   2,
	}

	query, args := buildInsert("fund_metrics", payload)

	wantQuery := "INSERT INTO fund_metrics (alpha, mid, zeta) VALUES ($1, $2, $3)"
	if query != wantQuery {
		t.Errorf("query = %q, want %q", query, wantQuery)
	}
	if !reflect.DeepEqual(args, []interface{}{1, 2, 3}) {
		t.Errorf("args = %v", args)
	}
}

func TestIsTimestampColumnErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New(`pq: column "created_at" of relation "fund_metrics" does not exist`), true},
		{errors.New(`pq: column "updated_at" is of type text`), true},
		{errors.New(`pq: column "land_value" does not exist`), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := isTimestampColumnErr(tc.err); got != tc.want {
			t.Errorf("isTimestampColumnErr(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
