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

// Package gmail provides access to messages stored in Google's GMail
// system: listing, fetching, and marking them read.
package gmail

import (
	"context"
	"net/http"

	"github.com/matta/mailsheet/internal/message"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	gmail_api "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// ModifyScope grants read access plus label changes, which
	// marking a message read requires.
	ModifyScope = gmail_api.GmailModifyScope

	// See https://developers.google.com/gmail/api/v1/reference/quota
	quotaUnitsPerMessagesGet  = 5
	quotaUnitsPerMessagesList = 1
	quotaUnitsPerBatchModify  = 50
	quotaUnitsPerGetProfile   = 2

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	// users.messages.batchModify rejects requests naming more ids
	// than this.
	maxBatchModifyIDs = 1000
)

// Service provides access to one GMail mailbox.  All calls are paced
// by a shared rate limiter sized from the documented per-user quota
// so a large mailbox cannot trip the API's throttling.
type Service struct {
	svc     *gmail_api.Service
	limiter *rate.Limiter
	log     *zap.Logger
}

// New returns a Service speaking through client, which must already
// carry OAuth credentials for the mailbox owner.
func New(ctx context.Context, client *http.Client, log *zap.Logger) (*Service, error) {
	svc, err := gmail_api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "creating gmail service")
	}
	if log == nil {
		log = zap.NewNop()
	}
	l := rate.NewLimiter(rateLimitPerSecond, rateLimitBurst)
	return &Service{svc: svc, limiter: l, log: log}, nil
}

// List delivers the identifier of every message matching query to
// handler, in the order the mailbox returns them.  A handler error
// stops the listing and is returned.
func (s *Service) List(ctx context.Context, query string, handler func(message.ID) error) error {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return err
	}
	req := gmail_api.NewUsersMessagesService(s.svc).List("me").Q(query)
	total := 0
	err := req.Pages(ctx, func(page *gmail_api.ListMessagesResponse) (err error) {
		total += len(page.Messages)
		s.log.Debug("listed page of gmail messages",
			zap.Int("count", len(page.Messages)),
			zap.Int("total", total))
		for _, msg := range page.Messages {
			m := message.ID{PermID: msg.Id, ThreadID: msg.ThreadId}
			if err := handler(m); err != nil {
				return err
			}
		}
		if page.NextPageToken != "" {
			err = s.limiter.WaitN(ctx, quotaUnitsPerMessagesList)
		}
		return
	})
	if err != nil {
		return errors.Wrap(err, "unable to list messages")
	}
	s.log.Debug("done listing gmail messages", zap.Int("total", total))
	return nil
}

// Fetch retrieves one complete message, including its MIME payload.
// A message that has disappeared since it was listed is reported as
// message.ErrNotFound.
func (s *Service) Fetch(ctx context.Context, id message.ID) (*message.Raw, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesGet); err != nil {
		return nil, err
	}
	msg, err := gmail_api.NewUsersMessagesService(s.svc).Get("me", id.PermID).
		Context(ctx).Format("full").Do()
	if err != nil {
		switch cause := errors.Cause(err).(type) {
		case *googleapi.Error:
			if cause.Code == http.StatusNotFound {
				return nil, errors.Wrapf(message.ErrNotFound, "message %v", id.PermID)
			}
		}
		return nil, errors.Wrapf(err, "getting message %v from gmail", id.PermID)
	}
	return convert(msg), nil
}

// Acknowledge marks the messages read by removing the UNREAD label.
// Removing the label from an already-read message changes nothing,
// so repeating a call is harmless.
func (s *Service) Acknowledge(ctx context.Context, ids []string) error {
	msgs := gmail_api.NewUsersMessagesService(s.svc)
	for _, batch := range chunk(ids, maxBatchModifyIDs) {
		if err := s.limiter.WaitN(ctx, quotaUnitsPerBatchModify); err != nil {
			return err
		}
		req := &gmail_api.BatchModifyMessagesRequest{
			Ids:            batch,
			RemoveLabelIds: []string{"UNREAD"},
		}
		if err := msgs.BatchModify("me", req).Context(ctx).Do(); err != nil {
			return errors.Wrapf(err, "marking %d messages read", len(batch))
		}
		s.log.Debug("marked messages read", zap.Int("count", len(batch)))
	}
	return nil
}

// Profile returns the email address of the authorized mailbox.
func (s *Service) Profile(ctx context.Context) (string, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerGetProfile); err != nil {
		return "", err
	}
	u, err := gmail_api.NewUsersService(s.svc).GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", errors.Wrap(err, "getting gmail profile")
	}
	return u.EmailAddress, nil
}

// chunk splits ids into slices of at most size elements, preserving
// order.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

func convert(msg *gmail_api.Message) *message.Raw {
	return &message.Raw{
		ID:           message.ID{PermID: msg.Id, ThreadID: msg.ThreadId},
		InternalDate: msg.InternalDate,
		SizeEstimate: msg.SizeEstimate,
		Payload:      convertPart(msg.Payload),
	}
}

func convertPart(p *gmail_api.MessagePart) *message.Part {
	if p == nil {
		return nil
	}
	part := &message.Part{MimeType: p.MimeType}
	if p.Body != nil {
		part.Data = p.Body.Data
	}
	for _, h := range p.Headers {
		part.Headers = append(part.Headers, message.Header{Name: h.Name, Value: h.Value})
	}
	for _, child := range p.Parts {
		part.Parts = append(part.Parts, convertPart(child))
	}
	return part
}
