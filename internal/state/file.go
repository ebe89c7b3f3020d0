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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	stateDirMode  = 0700
	stateFileMode = 0600
)

// File is a Store backed by an append-only text file holding one
// identifier per line.
type File struct {
	path string
}

// OpenFile prepares a file store at path.  The file itself is
// created on the first Record.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), stateDirMode); err != nil {
		return nil, errors.Wrapf(err, "creating state directory for %q", path)
	}
	return &File{path: path}, nil
}

// Load returns every recorded identifier in file order.
func (f *File) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "reading state file %q", f.path)
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, nil
}

// Record appends ids to the file and syncs it before reporting
// success.
func (f *File) Record(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	var sb strings.Builder
	for _, id := range ids {
		if strings.ContainsAny(id, "\r\n") {
			return errors.Errorf("malformed id %q", id)
		}
		sb.WriteString(id)
		sb.WriteByte('\n')
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, stateFileMode)
	if err != nil {
		return errors.Wrapf(err, "opening state file %q", f.path)
	}
	if _, err := file.WriteString(sb.String()); err != nil {
		file.Close()
		return errors.Wrapf(err, "appending to state file %q", f.path)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return errors.Wrapf(err, "syncing state file %q", f.path)
	}
	return errors.Wrapf(file.Close(), "closing state file %q", f.path)
}
