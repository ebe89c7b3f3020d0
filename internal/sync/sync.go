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

// Package sync copies new mailbox messages into a spreadsheet so
// that re-running after any interruption never duplicates a row and
// never loses a message.
package sync

import (
	"context"

	"github.com/matta/mailsheet/internal/message"
	"github.com/matta/mailsheet/internal/retry"
	"github.com/matta/mailsheet/internal/state"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultFetchWorkers = 4

// errStopList stops a listing early once the per-run cap is reached.
var errStopList = errors.New("stop listing")

// Syncer performs synchronization passes.  Mailbox, Rows, Store, and
// Transform must be set; everything else has a usable zero value.
type Syncer struct {
	Mailbox   Mailbox
	Rows      RowAppender
	Store     state.Store
	Transform Transform

	// Filter rejects converted rows by subject.  Rejected
	// messages stay unread and unrecorded, so later runs see them
	// again.  Optional.
	Filter Filter

	// Query narrows the mailbox listing.
	Query string

	// Retry reruns transiently failing remote calls.
	Retry retry.Policy

	// FetchWorkers caps concurrent message fetches.
	FetchWorkers int

	// MaxMessages caps how many new messages one pass takes on.
	// Zero means no cap.
	MaxMessages int

	// DryRun stops the pass before anything is written or
	// acknowledged.
	DryRun bool

	Log *zap.Logger
}

// Report summarizes one pass.
type Report struct {
	RunID        string
	Discovered   int // identifiers returned by the mailbox listing
	Duplicates   int // delivered by an earlier pass and skipped
	Filtered     int // rejected by the subject filter
	Fetched      int // fetched and converted successfully
	Errored      int // skipped because fetching or conversion failed
	Persisted    int // rows confirmed appended to the spreadsheet
	Acknowledged int // messages marked read in the mailbox
	AckFailed    bool
	DryRun       bool
}

// Run performs one synchronization pass and reports what it did.
//
// A pass is a straight line: load the delivered-id set, list
// candidate messages, fetch and convert the new ones, append their
// rows, record their ids, and finally mark the messages read.  Rows
// are always appended before their ids are recorded, and messages
// are marked read only after both writes are confirmed, so an
// interruption at any point leaves only work the next pass redoes,
// never a lost message.
//
// A message that vanished from the mailbox or whose content cannot
// be converted is logged and skipped.  A failing stage, or a
// rejection retrying cannot fix, aborts the pass.
func (s *Syncer) Run(ctx context.Context) (*Report, error) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run", runID))
	rep := &Report{RunID: runID, DryRun: s.DryRun}

	seen, err := s.load(ctx)
	if err != nil {
		return rep, errors.Wrap(err, "identity store unavailable")
	}
	log.Info("loaded delivered ids", zap.Int("count", seen.Len()))

	candidates, err := s.discover(ctx, rep, seen)
	if err != nil {
		return rep, errors.Wrap(err, "unable to list messages")
	}
	log.Info("discovered messages",
		zap.Int("listed", rep.Discovered),
		zap.Int("new", len(candidates)),
		zap.Int("duplicates", rep.Duplicates))

	rows, delivered, err := s.fetchAll(ctx, log, rep, candidates)
	if err != nil {
		return rep, err
	}

	if len(rows) == 0 {
		log.Info("nothing to sync",
			zap.Int("errored", rep.Errored),
			zap.Int("filtered", rep.Filtered))
		return rep, nil
	}
	if s.DryRun {
		log.Info("dry run, stopping before any write", zap.Int("rows", len(rows)))
		return rep, nil
	}

	if err := s.deliver(ctx, log, rep, rows, delivered); err != nil {
		return rep, err
	}

	log.Info("pass complete",
		zap.Int("persisted", rep.Persisted),
		zap.Int("acknowledged", rep.Acknowledged),
		zap.Int("errored", rep.Errored),
		zap.Int("filtered", rep.Filtered))
	return rep, nil
}

func (s *Syncer) load(ctx context.Context) (*state.Set, error) {
	var known []string
	err := s.Retry.Do(ctx, "load delivered ids", func() error {
		var err error
		known, err = s.Store.Load(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state.NewSet(known), nil
}

// discover lists candidate identifiers, dropping the ones an earlier
// pass already delivered.
func (s *Syncer) discover(ctx context.Context, rep *Report, seen *state.Set) ([]message.ID, error) {
	var candidates []message.ID
	err := s.Retry.Do(ctx, "list messages", func() error {
		// A rerun restarts the listing from scratch.
		candidates = candidates[:0]
		rep.Discovered, rep.Duplicates = 0, 0
		inRun := state.NewSet(nil)
		err := s.Mailbox.List(ctx, s.Query, func(id message.ID) error {
			if s.MaxMessages > 0 && len(candidates) >= s.MaxMessages {
				return errStopList
			}
			rep.Discovered++
			if seen.Has(id.PermID) || inRun.Has(id.PermID) {
				rep.Duplicates++
				return nil
			}
			inRun.Add(id.PermID)
			candidates = append(candidates, id)
			return nil
		})
		if errors.Is(err, errStopList) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return candidates, nil
}

// fetchAll retrieves and converts candidates concurrently while
// preserving their listed order in the returned rows.  The second
// return value holds the id of each returned row, index for index.
func (s *Syncer) fetchAll(ctx context.Context, log *zap.Logger, rep *Report, candidates []message.ID) ([]message.Row, []string, error) {
	type result struct {
		row      *message.Row
		filtered bool
		failed   bool
	}
	results := make([]result, len(candidates))

	grp, gctx := errgroup.WithContext(ctx)
	workers := s.FetchWorkers
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	grp.SetLimit(workers)

	for i, id := range candidates {
		grp.Go(func() error {
			raw, err := s.fetchOne(gctx, id)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				if retry.IsPermanent(err) {
					return errors.Wrapf(err, "fetching message %v", id.PermID)
				}
				log.Warn("skipping message",
					zap.String("id", id.PermID),
					zap.Error(err))
				results[i] = result{failed: true}
				return nil
			}
			row, err := s.Transform(raw)
			if err != nil {
				log.Warn("skipping message with unusable content",
					zap.String("id", id.PermID),
					zap.Error(err))
				results[i] = result{failed: true}
				return nil
			}
			if s.Filter != nil && !s.Filter.Match(row.Subject) {
				results[i] = result{filtered: true}
				return nil
			}
			results[i] = result{row: &row}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, nil, err
	}

	var rows []message.Row
	var delivered []string
	for i, res := range results {
		switch {
		case res.row != nil:
			rep.Fetched++
			rows = append(rows, *res.row)
			delivered = append(delivered, candidates[i].PermID)
		case res.filtered:
			rep.Fetched++
			rep.Filtered++
		case res.failed:
			rep.Errored++
		}
	}
	return rows, delivered, nil
}

func (s *Syncer) fetchOne(ctx context.Context, id message.ID) (*message.Raw, error) {
	var raw *message.Raw
	err := s.Retry.Do(ctx, "fetch message "+id.PermID, func() error {
		var err error
		raw, err = s.Mailbox.Fetch(ctx, id)
		return err
	})
	return raw, err
}

// deliver appends rows, records their ids, and then acknowledges the
// messages, strictly in that order.
func (s *Syncer) deliver(ctx context.Context, log *zap.Logger, rep *Report, rows []message.Row, delivered []string) error {
	err := s.Retry.Do(ctx, "append rows", func() error {
		return s.Rows.AppendRows(ctx, rows)
	})
	if err != nil {
		return errors.Wrap(err, "unable to append rows")
	}
	rep.Persisted = len(rows)

	err = s.Retry.Do(ctx, "record delivered ids", func() error {
		return s.Store.Record(ctx, delivered)
	})
	if err != nil {
		// The rows are in the spreadsheet but their ids are
		// not recorded; the next pass appends them again.
		return errors.Wrap(err, "unable to record delivered ids")
	}

	err = s.Retry.Do(ctx, "acknowledge messages", func() error {
		return s.Mailbox.Acknowledge(ctx, delivered)
	})
	if err != nil {
		// Not fatal: the ids are recorded, so the still-unread
		// messages are skipped as duplicates next pass.
		rep.AckFailed = true
		log.Warn("unable to acknowledge messages", zap.Error(err))
		return nil
	}
	rep.Acknowledged = len(delivered)
	return nil
}
