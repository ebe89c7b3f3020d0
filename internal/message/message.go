package message

// This file provides the common data objects used by the rest of the
// program.

import (
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound is reported when a message named by a mailbox listing
// can no longer be retrieved from the mailbox.
var ErrNotFound = errors.New("message not found")

// ID defines the properties that uniquely identify a message.
type ID struct {
	// The permanent and unique ID of a message in a mailbox
	// system.
	PermID string

	// The permanent and unique ID of a thread associated with the
	// message.  May be empty in mailbox systems that do not
	// support this concept.
	ThreadID string
}

// Header is one name/value pair of message metadata.
type Header struct {
	Name  string
	Value string
}

// Part is one node of a message's MIME part tree.  Leaf parts carry
// base64url encoded content in Data; container parts carry children
// in Parts.
type Part struct {
	MimeType string
	Headers  []Header
	Data     string
	Parts    []*Part
}

// Raw defines a complete message as delivered by the mailbox: its
// identifiers, receipt time, and MIME payload.
type Raw struct {
	// The message's permanent unique identifiers.
	ID

	// Receipt time in milliseconds since the Unix epoch.
	InternalDate int64

	// An estimated size of the message (bytes).
	SizeEstimate int64

	// The root of the MIME part tree.
	Payload *Part
}

// Row is the flattened spreadsheet form of a message.  The body is a
// single line; all runs of whitespace have been collapsed.
type Row struct {
	Sender   string
	Subject  string
	Received time.Time
	Body     string
}
