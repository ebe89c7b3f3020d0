package sheets

import (
	"testing"
	"time"

	"github.com/matta/mailsheet/internal/message"

	"github.com/google/go-cmp/cmp"
)

func TestRowValues(t *testing.T) {
	received := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	row := message.Row{
		Sender:   "Billing <billing@example.com>",
		Subject:  "Invoice #42",
		Received: received,
		Body:     "please pay",
	}
	want := []interface{}{
		"Billing <billing@example.com>",
		"Invoice #42",
		"2026-03-14 09:26:53 UTC",
		"please pay",
	}
	if diff := cmp.Diff(want, rowValues(row)); diff != "" {
		t.Errorf("rowValues() mismatch (-want +got):\n%s", diff)
	}
}

func TestIDsFromValues(t *testing.T) {
	cases := []struct {
		name   string
		values [][]interface{}
		want   []string
	}{
		{"empty tab", nil, nil},
		{"plain ids", [][]interface{}{{"a"}, {"b"}}, []string{"a", "b"}},
		{"empty rows skipped", [][]interface{}{{"a"}, {}, {"b"}}, []string{"a", "b"}},
		{"blank cells skipped", [][]interface{}{{" "}, {"a"}, {""}}, []string{"a"}},
		{"non-string cells skipped", [][]interface{}{{3.0}, {"a"}}, []string{"a"}},
		{"whitespace trimmed", [][]interface{}{{" a "}}, []string{"a"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := idsFromValues(tc.values)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("idsFromValues() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
