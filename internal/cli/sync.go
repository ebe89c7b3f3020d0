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

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matta/mailsheet/internal/config"
	"github.com/matta/mailsheet/internal/filter"
	"github.com/matta/mailsheet/internal/gmail"
	"github.com/matta/mailsheet/internal/googleauth"
	"github.com/matta/mailsheet/internal/logging"
	"github.com/matta/mailsheet/internal/parse"
	"github.com/matta/mailsheet/internal/retry"
	"github.com/matta/mailsheet/internal/sheets"
	"github.com/matta/mailsheet/internal/state"
	"github.com/matta/mailsheet/internal/sync"
	"github.com/matta/mailsheet/internal/tracehttp"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass",
		Long: `sync lists unread inbox messages matching the configured query,
appends the new ones to the spreadsheet, records their ids, and marks
them read.  Messages already recorded are skipped, so running sync
again after a crash or an interrupt picks up where it left off.`,
		RunE: runSync,
	}

	cmd.Flags().String("spreadsheet-id", "", "id of the target spreadsheet")
	cmd.Flags().String("emails-tab", "Emails", "tab rows are appended to")
	cmd.Flags().String("processed-tab", "Processed", "tab delivered ids are recorded in")
	cmd.Flags().String("query", "in:inbox is:unread", "Gmail search the sync starts from")
	cmd.Flags().StringSlice("include", []string{"invoice", "receipt", "payment", "bill"},
		"keep only subjects containing one of these keywords")
	cmd.Flags().StringSlice("exclude", nil,
		"drop subjects containing any of these keywords")
	cmd.Flags().String("credentials", "", "path to the OAuth client secrets file")
	cmd.Flags().String("token", "", "path to the saved OAuth token")
	cmd.Flags().String("state-backend", config.BackendSheet,
		"where delivered ids are kept (sheet, sqlite, file)")
	cmd.Flags().String("state-db", "", "path to the sqlite state database")
	cmd.Flags().String("state-file", "", "path to the plain text state file")
	cmd.Flags().Int("max-messages", 0, "cap new messages per run (0 means no cap)")
	cmd.Flags().Int("fetch-concurrency", 4, "concurrent message fetches")
	cmd.Flags().Bool("dry-run", false, "fetch and convert but write nothing")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Trace {
		tracehttp.WrapDefaultTransport()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := googleauth.Client(ctx, cfg.CredentialsFile, cfg.TokenFile,
		gmail.ModifyScope, sheets.Scope)
	if err != nil {
		return err
	}
	mailbox, err := gmail.New(ctx, client, log)
	if err != nil {
		return err
	}
	sheet, err := sheets.New(ctx, client, sheets.Config{
		SpreadsheetID: cfg.SpreadsheetID,
		EmailsTab:     cfg.EmailsTab,
		ProcessedTab:  cfg.ProcessedTab,
	}, log)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, sheet)
	if err != nil {
		return err
	}
	defer closeStore()

	f := filter.New(cfg.Include, cfg.Exclude)
	query := cfg.Query
	if q := f.Query(); q != "" {
		query += " " + q
	}

	s := &sync.Syncer{
		Mailbox:   mailbox,
		Rows:      sheet,
		Store:     store,
		Transform: parse.Message,
		Filter:    f,
		Query:     query,
		Retry: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Log:             log,
		},
		FetchWorkers: cfg.FetchConcurrency,
		MaxMessages:  cfg.MaxMessages,
		DryRun:       cfg.DryRun,
		Log:          log,
	}

	rep, err := s.Run(ctx)
	if err != nil {
		return err
	}
	printReport(cmd, rep)
	switch {
	case rep.Errored > 0:
		return errors.Errorf("%d messages could not be synced", rep.Errored)
	case rep.AckFailed:
		return errors.New("rows synced but messages could not be marked read")
	}
	return nil
}

// openStore picks the delivered-id store.  The sheet backend reuses
// the spreadsheet service.
func openStore(ctx context.Context, cfg *config.Config, sheet *sheets.Service) (state.Store, func(), error) {
	switch cfg.StateBackend {
	case config.BackendSheet:
		return sheet, func() {}, nil
	case config.BackendSQLite:
		db, err := state.OpenSQLite(ctx, cfg.StateDB)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case config.BackendFile:
		st, err := state.OpenFile(cfg.StateFile)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil
	}
	return nil, nil, errors.Errorf("unknown state backend %q", cfg.StateBackend)
}

func printReport(cmd *cobra.Command, rep *sync.Report) {
	if rep.DryRun {
		cmd.Printf("dry run: %d messages would be appended (%d listed, %d already delivered, %d filtered, %d errored)\n",
			rep.Fetched-rep.Filtered, rep.Discovered, rep.Duplicates, rep.Filtered, rep.Errored)
		return
	}
	cmd.Printf("synced %d messages (%d listed, %d already delivered, %d filtered, %d errored, %d acknowledged)\n",
		rep.Persisted, rep.Discovered, rep.Duplicates, rep.Filtered, rep.Errored, rep.Acknowledged)
}
