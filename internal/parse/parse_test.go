package parse

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/matta/mailsheet/internal/message"

	"github.com/google/go-cmp/cmp"
)

func enc(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func part(mime, body string, children ...*message.Part) *message.Part {
	return &message.Part{MimeType: mime, Data: body, Parts: children}
}

func raw(payload *message.Part) *message.Raw {
	return &message.Raw{
		ID:           message.ID{PermID: "m1", ThreadID: "t1"},
		InternalDate: 1700000000000,
		Payload:      payload,
	}
}

func TestMessageBodies(t *testing.T) {
	cases := []struct {
		name    string
		payload *message.Part
		want    string
	}{
		{
			name:    "plain single part",
			payload: part("text/plain", enc("hello world")),
			want:    "hello world",
		},
		{
			name:    "plain part in multipart",
			payload: part("multipart/mixed", "", part("text/plain", enc("the body"))),
			want:    "the body",
		},
		{
			name: "plain preferred even when html comes first",
			payload: part("multipart/alternative", "",
				part("text/html", enc("<p>html body</p>")),
				part("text/plain", enc("plain body"))),
			want: "plain body",
		},
		{
			name: "html fallback when no plain part",
			payload: part("multipart/alternative", "",
				part("text/html", enc("<p>Hello <b>there</b></p>"))),
			want: "Hello there",
		},
		{
			name: "script and style stripped from html",
			payload: part("text/html",
				enc("<html><style>p{color:red}</style><body>keep<script>drop()</script> this</body></html>")),
			want: "keep this",
		},
		{
			name:    "html entities decoded",
			payload: part("text/html", enc("A &amp; B")),
			want:    "A & B",
		},
		{
			name: "nested multipart searched",
			payload: part("multipart/mixed", "",
				part("multipart/alternative", "",
					part("text/plain", enc("nested text")))),
			want: "nested text",
		},
		{
			name:    "whitespace collapsed to single line",
			payload: part("text/plain", enc("line one\r\nline two\n\n\t spaced")),
			want:    "line one line two spaced",
		},
		{
			name:    "unknown single part mime falls back to raw decode",
			payload: part("application/octet-stream", enc("raw  content\nhere")),
			want:    "raw content here",
		},
		{
			name:    "padded base64 accepted",
			payload: part("text/plain", base64.URLEncoding.EncodeToString([]byte("padded"))),
			want:    "padded",
		},
		{
			name: "empty plain part does not shadow html",
			payload: part("multipart/alternative", "",
				part("text/plain", ""),
				part("text/html", enc("<i>fallback</i>"))),
			want: "fallback",
		},
		{
			name:    "no textual content at all",
			payload: part("multipart/mixed", "", part("image/png", "")),
			want:    "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row, err := Message(raw(tc.payload))
			if err != nil {
				t.Fatalf("Message() error = %v, want nil", err)
			}
			if row.Body != tc.want {
				t.Errorf("body = %q, want %q", row.Body, tc.want)
			}
		})
	}
}

func TestMessageFields(t *testing.T) {
	msg := raw(part("text/plain", enc("body")))
	msg.Payload.Headers = []message.Header{
		{Name: "To", Value: "someone@example.com"},
		{Name: "FROM", Value: "Billing <billing@example.com>"},
		{Name: "subject", Value: "Invoice #42"},
	}
	got, err := Message(msg)
	if err != nil {
		t.Fatalf("Message() error = %v, want nil", err)
	}
	want := message.Row{
		Sender:   "Billing <billing@example.com>",
		Subject:  "Invoice #42",
		Received: time.UnixMilli(1700000000000),
		Body:     "body",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Message() mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageMissingHeaders(t *testing.T) {
	got, err := Message(raw(part("text/plain", enc("body"))))
	if err != nil {
		t.Fatalf("Message() error = %v, want nil", err)
	}
	if got.Sender != "" || got.Subject != "" {
		t.Errorf("got sender %q subject %q, want empty", got.Sender, got.Subject)
	}
}

func TestMessageErrors(t *testing.T) {
	cases := []struct {
		name string
		msg  *message.Raw
	}{
		{"nil message", nil},
		{"nil payload", &message.Raw{ID: message.ID{PermID: "m1"}}},
		{"no id", &message.Raw{Payload: part("text/plain", enc("x"))}},
		{"undecodable body", raw(part("text/plain", "!!! not base64 !!!"))},
		{"undecodable nested part", raw(part("multipart/mixed", "", part("text/plain", "%%%")))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Message(tc.msg); err == nil {
				t.Error("Message() error = nil, want non-nil")
			}
		})
	}
}

func TestCollapseInvalidUTF8(t *testing.T) {
	got := collapse("ok \xff\xfe bytes")
	if !strings.Contains(got, "�") {
		t.Errorf("collapse() = %q, want replacement characters", got)
	}
	if strings.Contains(got, "\xff") {
		t.Errorf("collapse() = %q, still contains invalid bytes", got)
	}
}
