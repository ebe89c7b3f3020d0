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

// Package sheets delivers message rows to one Google Sheets
// spreadsheet.  The same spreadsheet doubles as the default identity
// store: delivered message ids live on their own tab, which keeps the
// state visible and auditable right next to the data.
package sheets

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/matta/mailsheet/internal/message"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheets_api "google.golang.org/api/sheets/v4"
)

// Scope grants read/write access to spreadsheets.
const Scope = sheets_api.SpreadsheetsScope

// timeLayout renders receipt times the way they read best in a cell.
const timeLayout = "2006-01-02 15:04:05 MST"

// Config names the spreadsheet and its two tabs.
type Config struct {
	// SpreadsheetID is the long identifier from the spreadsheet's
	// URL.
	SpreadsheetID string

	// EmailsTab holds one row per delivered message.
	EmailsTab string

	// ProcessedTab holds one delivered message id per row.
	ProcessedTab string
}

// Service reads and writes one spreadsheet.
type Service struct {
	svc *sheets_api.Service
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	ensured bool
}

// New returns a Service for the configured spreadsheet, speaking
// through client.
func New(ctx context.Context, client *http.Client, cfg Config, log *zap.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet ID not configured")
	}
	if cfg.EmailsTab == "" || cfg.ProcessedTab == "" {
		return nil, errors.New("sheet tab names not configured")
	}
	svc, err := sheets_api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "creating sheets service")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{svc: svc, cfg: cfg, log: log}, nil
}

// EnsureSheets creates the two tabs and their header rows if they do
// not exist yet.  The check runs once per Service and every read and
// write goes through it, so a freshly created spreadsheet bootstraps
// itself on first use.
func (s *Service) EnsureSheets(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured {
		return nil
	}

	meta, err := s.svc.Spreadsheets.Get(s.cfg.SpreadsheetID).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "getting spreadsheet %v", s.cfg.SpreadsheetID)
	}
	titles := make(map[string]bool)
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil {
			titles[sheet.Properties.Title] = true
		}
	}

	headers := map[string][]interface{}{
		s.cfg.EmailsTab:    {"From", "Subject", "Date", "Content"},
		s.cfg.ProcessedTab: {"messageId"},
	}
	var created []string
	var reqs []*sheets_api.Request
	for _, tab := range []string{s.cfg.EmailsTab, s.cfg.ProcessedTab} {
		if titles[tab] {
			continue
		}
		created = append(created, tab)
		reqs = append(reqs, &sheets_api.Request{
			AddSheet: &sheets_api.AddSheetRequest{
				Properties: &sheets_api.SheetProperties{Title: tab},
			},
		})
	}
	if len(reqs) > 0 {
		req := &sheets_api.BatchUpdateSpreadsheetRequest{Requests: reqs}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.cfg.SpreadsheetID, req).Context(ctx).Do(); err != nil {
			return errors.Wrap(err, "adding missing sheet tabs")
		}
		for _, tab := range created {
			vr := &sheets_api.ValueRange{Values: [][]interface{}{headers[tab]}}
			_, err := s.svc.Spreadsheets.Values.Update(s.cfg.SpreadsheetID, tab+"!A1", vr).
				ValueInputOption("RAW").Context(ctx).Do()
			if err != nil {
				return errors.Wrapf(err, "writing header row of %v", tab)
			}
		}
		s.log.Info("created missing sheet tabs", zap.Strings("tabs", created))
	}
	s.ensured = true
	return nil
}

// AppendRows appends one spreadsheet row per message row, in order.
// It returns nil only after the API has confirmed the append.
func (s *Service) AppendRows(ctx context.Context, rows []message.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if err := s.EnsureSheets(ctx); err != nil {
		return err
	}
	values := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		values = append(values, rowValues(r))
	}
	vr := &sheets_api.ValueRange{Values: values}
	resp, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.cfg.EmailsTab+"!A2", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "appending rows to %v", s.cfg.EmailsTab)
	}
	appended := int64(0)
	if resp.Updates != nil {
		appended = resp.Updates.UpdatedRows
	}
	s.log.Info("appended rows", zap.String("tab", s.cfg.EmailsTab), zap.Int64("rows", appended))
	return nil
}

// Load returns every message id recorded on the processed tab,
// skipping the header row.  Satisfies state.Store.
func (s *Service) Load(ctx context.Context) ([]string, error) {
	if err := s.EnsureSheets(ctx); err != nil {
		return nil, err
	}
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.cfg.ProcessedTab+"!A2:A").
		Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "reading processed ids from %v", s.cfg.ProcessedTab)
	}
	return idsFromValues(resp.Values), nil
}

// Record appends ids to the processed tab in order.  Satisfies
// state.Store.
func (s *Service) Record(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.EnsureSheets(ctx); err != nil {
		return err
	}
	values := make([][]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, []interface{}{id})
	}
	vr := &sheets_api.ValueRange{Values: values}
	resp, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.cfg.ProcessedTab+"!A2", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "recording processed ids to %v", s.cfg.ProcessedTab)
	}
	appended := int64(0)
	if resp.Updates != nil {
		appended = resp.Updates.UpdatedRows
	}
	s.log.Info("recorded processed ids", zap.String("tab", s.cfg.ProcessedTab), zap.Int64("ids", appended))
	return nil
}

func rowValues(r message.Row) []interface{} {
	return []interface{}{r.Sender, r.Subject, r.Received.Format(timeLayout), r.Body}
}

func idsFromValues(values [][]interface{}) []string {
	var ids []string
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		id, ok := row[0].(string)
		if !ok {
			continue
		}
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
