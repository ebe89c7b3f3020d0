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

package sync

// This file defines the contracts the run needs from its external
// collaborators: the mailbox holding the messages, the spreadsheet
// receiving them, and the subject filter.

import (
	"context"

	"github.com/matta/mailsheet/internal/message"
)

// MessageLister lists message identifiers from a mailbox.
type MessageLister interface {
	// List delivers every identifier matching query to handler,
	// in the mailbox's order.  A handler error stops the listing
	// and is returned.
	List(ctx context.Context, query string, handler func(message.ID) error) error
}

// MessageFetcher gets complete messages from a mailbox.
type MessageFetcher interface {
	// Fetch returns the full message, or message.ErrNotFound when
	// the mailbox no longer has it.
	Fetch(ctx context.Context, id message.ID) (*message.Raw, error)
}

// Acknowledger marks mailbox messages as handled so later listings
// no longer return them.
type Acknowledger interface {
	// Acknowledge is safe to repeat for already-acknowledged
	// messages.
	Acknowledge(ctx context.Context, ids []string) error
}

// Mailbox provides all actions the run needs from the message
// source.
type Mailbox interface {
	MessageLister
	MessageFetcher
	Acknowledger
}

// RowAppender delivers converted rows to the spreadsheet.
type RowAppender interface {
	// AppendRows appends rows in order, returning nil only once
	// the write is confirmed.
	AppendRows(ctx context.Context, rows []message.Row) error
}

// Filter decides whether a message's subject is wanted.
type Filter interface {
	Match(subject string) bool
}

// Transform converts a fetched message into its spreadsheet row.  It
// must be pure: no remote calls, and an error only for content that
// cannot be converted.
type Transform func(*message.Raw) (message.Row, error)
