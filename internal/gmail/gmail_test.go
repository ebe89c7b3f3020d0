package gmail

import (
	"testing"

	"github.com/matta/mailsheet/internal/message"

	"github.com/google/go-cmp/cmp"
	gmail_api "google.golang.org/api/gmail/v1"
)

func TestChunk(t *testing.T) {
	cases := []struct {
		name string
		ids  []string
		size int
		want [][]string
	}{
		{"empty", nil, 2, nil},
		{"under one batch", []string{"a"}, 2, [][]string{{"a"}}},
		{"exact batch", []string{"a", "b"}, 2, [][]string{{"a", "b"}}},
		{"split", []string{"a", "b", "c"}, 2, [][]string{{"a", "b"}, {"c"}}},
		{"singletons", []string{"a", "b", "c"}, 1, [][]string{{"a"}, {"b"}, {"c"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := chunk(tc.ids, tc.size)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("chunk(%v, %d) mismatch (-want +got):\n%s", tc.ids, tc.size, diff)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	in := &gmail_api.Message{
		Id:           "m1",
		ThreadId:     "t1",
		InternalDate: 1700000000000,
		SizeEstimate: 2048,
		Payload: &gmail_api.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail_api.MessagePartHeader{
				{Name: "From", Value: "a@example.com"},
				{Name: "Subject", Value: "hi"},
			},
			Parts: []*gmail_api.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmail_api.MessagePartBody{Data: "aGVsbG8"},
				},
				{
					MimeType: "text/html",
					Body:     &gmail_api.MessagePartBody{Data: "PGI-aGk8L2I-"},
				},
			},
		},
	}
	want := &message.Raw{
		ID:           message.ID{PermID: "m1", ThreadID: "t1"},
		InternalDate: 1700000000000,
		SizeEstimate: 2048,
		Payload: &message.Part{
			MimeType: "multipart/alternative",
			Headers: []message.Header{
				{Name: "From", Value: "a@example.com"},
				{Name: "Subject", Value: "hi"},
			},
			Parts: []*message.Part{
				{MimeType: "text/plain", Data: "aGVsbG8"},
				{MimeType: "text/html", Data: "PGI-aGk8L2I-"},
			},
		},
	}
	got := convert(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("convert() mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertNilPayload(t *testing.T) {
	got := convert(&gmail_api.Message{Id: "m1"})
	if got.Payload != nil {
		t.Errorf("convert().Payload = %+v, want nil", got.Payload)
	}
}
