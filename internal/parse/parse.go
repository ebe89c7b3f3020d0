// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parse converts raw mailbox messages into spreadsheet rows.
//
// Parsing is kept apart from the mailbox API so it can be tested
// against recorded payloads.  The body strategy is conservative: the
// first text/plain part anywhere in the MIME tree wins, and a
// sanitized text/html part is used only when no plain text exists, so
// markup never lands in a cell.
package parse

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/matta/mailsheet/internal/message"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

// Message extracts the spreadsheet row for a fetched message.  Sender
// and subject come from the headers of the root part; a message
// missing either simply yields empty cells.  An undecodable body is
// an error; a message with no textual body at all is not.
func Message(msg *message.Raw) (message.Row, error) {
	if msg == nil || msg.Payload == nil {
		return message.Row{}, errors.New("message has no payload")
	}
	if msg.PermID == "" {
		return message.Row{}, errors.New("message has no ID")
	}

	body, err := bodyText(msg.Payload)
	if err != nil {
		return message.Row{}, errors.Wrapf(err, "extracting body of message %v", msg.PermID)
	}

	return message.Row{
		Sender:   headerValue(msg.Payload.Headers, "From"),
		Subject:  headerValue(msg.Payload.Headers, "Subject"),
		Received: time.UnixMilli(msg.InternalDate),
		Body:     body,
	}, nil
}

// headerValue returns the value of the first header matching name,
// compared case-insensitively, or "".
func headerValue(headers []message.Header, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// bodyText walks the part tree and returns the message body as a
// single line.  The first decodable text/plain part wins; otherwise
// the first text/html part, stripped of markup.  Single-part messages
// fall back to the root part's content whatever its declared type.
func bodyText(payload *message.Part) (string, error) {
	if len(payload.Parts) == 0 {
		if text, err := textFromPart(payload); err != nil || text != "" {
			return text, err
		}
		if payload.Data == "" {
			return "", nil
		}
		data, err := decodeBody(payload.Data)
		if err != nil {
			return "", err
		}
		return collapse(string(data)), nil
	}

	var plain, htmlFallback string
	var walk func(parts []*message.Part) error
	walk = func(parts []*message.Part) error {
		for _, part := range parts {
			text, err := textFromPart(part)
			if err != nil {
				return err
			}
			if text != "" {
				switch {
				case strings.HasPrefix(part.MimeType, "text/plain") && plain == "":
					plain = text
				case strings.HasPrefix(part.MimeType, "text/html") && htmlFallback == "":
					htmlFallback = text
				}
			}
			if err := walk(part.Parts); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(payload.Parts); err != nil {
		return "", err
	}
	if plain != "" {
		return plain, nil
	}
	return htmlFallback, nil
}

// textFromPart extracts single-line text from one leaf part, or ""
// when the part carries no body or is not a text type.
func textFromPart(part *message.Part) (string, error) {
	if part.Data == "" {
		return "", nil
	}
	switch {
	case strings.HasPrefix(part.MimeType, "text/plain"):
		data, err := decodeBody(part.Data)
		if err != nil {
			return "", err
		}
		return collapse(string(data)), nil
	case strings.HasPrefix(part.MimeType, "text/html"):
		data, err := decodeBody(part.Data)
		if err != nil {
			return "", err
		}
		return collapse(htmlToText(string(data))), nil
	}
	return "", nil
}

// decodeBody decodes base64url content, with or without padding.
func decodeBody(encoded string) ([]byte, error) {
	b, err := base64.URLEncoding.DecodeString(encoded)
	if err == nil {
		return b, nil
	}
	b, rawErr := base64.RawURLEncoding.DecodeString(encoded)
	if rawErr != nil {
		return nil, errors.Wrap(err, "decoding body data")
	}
	return b, nil
}

// collapse reduces every whitespace run, newlines included, to a
// single space so the text occupies exactly one spreadsheet cell.
// Invalid UTF-8 is replaced rather than propagated.
func collapse(s string) string {
	return strings.ToValidUTF8(strings.Join(strings.Fields(s), " "), "�")
}

// htmlToText returns the visible text of an HTML document.  Content
// under script and style elements is dropped.  Tokenizing stops at
// the first malformed construct, keeping whatever text was found
// before it.
func htmlToText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var sb strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style":
				if skip > 0 {
					skip--
				}
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}
