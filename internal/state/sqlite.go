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

package state

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	_ "github.com/mattn/go-sqlite3"
)

var createTableSQL = []string{
	// The processed_messages table holds one row per message ever
	// delivered to the spreadsheet.
	//
	// Field: message_id
	//
	//   The mailbox's permanent message identifier.  For GMail
	//   this is the Users.messages resource "id" field.
	//
	// Field: recorded_at
	//
	//   RFC 3339 UTC time at which the identifier was recorded.
	//   Informational only; nothing orders or expires on it.
	`
CREATE TABLE IF NOT EXISTS processed_messages (
message_id TEXT NOT NULL PRIMARY KEY,
recorded_at TEXT NOT NULL
);`,
}

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

func dsnFromPath(path string, addValues url.Values) (string, error) {
	var u *url.URL
	if !strings.HasPrefix(path, "file:") {
		u = &url.URL{Scheme: "file", Path: path}
	} else {
		var err error
		u, err = url.Parse(path)
		if err != nil {
			return "", err
		}
	}
	values := u.Query()
	for k, v := range addValues {
		for _, item := range v {
			values.Add(k, item)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, errors.Wrapf(err, "creating state directory for %q", path)
		}
	}

	// The _busy_timeout is a SQLite extension that controls how
	// long SQLite will poll before giving up.  The default of 5
	// seconds is too short when another run holds the database;
	// go with 5 minutes.
	var busyTimeout = int(5*time.Minute) / int(time.Millisecond)

	dsn, err := dsnFromPath(path, url.Values{
		"_busy_timeout": {fmt.Sprintf("%d", busyTimeout)}})
	if err != nil {
		return nil, errors.Wrapf(err,
			"OpenSQLite(%q) failed: could not form a DB DSN from "+
				"the given path",
			path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err,
			"OpenSQLite(%q) failed: could not open database at %q",
			path, dsn)
	}

	if err = initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err,
			"OpenSQLite(%q) failed: could not initialize the "+
				"database schema", path)
	}

	return &SQLite{db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range createTableSQL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "while executing %q", stmt)
		}
	}
	return nil
}

// Load returns every recorded identifier in recorded order.
func (s *SQLite) Load(ctx context.Context) ([]string, error) {
	const q = `SELECT message_id FROM processed_messages ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrap(err, "db query failed in Load")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "db scan failed in Load")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "db iteration failed in Load")
	}
	return ids, nil
}

// Record appends ids inside one transaction, so either all of them
// are recorded or none are.
func (s *SQLite) Record(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	defer tx.Rollback()

	const q = `INSERT INTO processed_messages (message_id, recorded_at)
		VALUES ($1, $2)
		ON CONFLICT (message_id) DO NOTHING`
	insert, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for record")
	}
	defer insert.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, id := range ids {
		if _, err := insert.ExecContext(ctx, id, now); err != nil {
			return errors.Wrapf(err, "db insert failed for id %v", id)
		}
	}
	return tx.Commit()
}
