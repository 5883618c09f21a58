package cli

import (
	"reflect"
	"testing"
)

func TestQuery(t *testing.T) {
	report := struct {
		UserID   string  `json:"user_id"`
		Score    float64 `json:"score"`
		Evidence int     `json:"evidence"`
	}{UserID: "u1", Score: 0.42, Evidence: 9}

	tests := []struct {
		name string
		expr string
		want any
	}{
		{"field", ".score", 0.42},
		{"string field", ".user_id", "u1"},
		{"missing field", ".ghost", nil},
		{"computed", ".evidence > 5", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(report, tt.expr)
			if err != nil {
				t.Fatalf("Query(%q) error: %v", tt.expr, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Query(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestQueryMultipleResults(t *testing.T) {
	data := map[string]any{"items": []any{"a", "b", "c"}}

	got, err := Query(data, ".items[]")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	want := []any{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Query = %v, want %v", got, want)
	}
}

func TestQueryParseError(t *testing.T) {
	_, err := Query(map[string]int{"a": 1}, ".a |")
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestQueryRuntimeError(t *testing.T) {
	_, err := Query(map[string]any{"a": "text"}, ".a + 1")
	if err == nil {
		t.Error("expected runtime error for string + number")
	}
}
