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

// Package retry classifies remote-call failures and reruns the
// transient ones with exponential backoff.
package retry

import (
	"context"
	"net/http"
	"time"

	"github.com/matta/mailsheet/internal/message"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// Policy retries an operation that fails transiently, waiting longer
// between each attempt.  The zero value performs a single attempt.
type Policy struct {
	// Total attempts per operation, including the first.
	MaxAttempts int

	// Delay before the first retry.  Later delays double, with
	// jitter, up to MaxInterval.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	Log *zap.Logger
}

// Do runs fn until it succeeds, fails in a way retrying cannot fix,
// exhausts the attempt budget, or ctx ends.  op names the operation
// in retry logs.  The error of the final attempt is returned as-is,
// so callers can still classify it.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	tries := p.MaxAttempts
	if tries < 1 {
		tries = 1
	}
	bo := backoff.NewExponentialBackOff()
	bo.Multiplier = 2
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("retrying",
				zap.String("op", op),
				zap.Duration("in", next),
				zap.Error(err))
		}),
	)
	return err
}

// retryable reports whether err is worth another attempt: rate
// limiting, server-side failure, or a transport error with no HTTP
// status at all.  Cancellation and messages that no longer exist are
// never retried.
func retryable(err error) bool {
	if errors.Is(err, message.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch cause := errors.Cause(err).(type) {
	case *googleapi.Error:
		return cause.Code == http.StatusTooManyRequests ||
			cause.Code >= 500 ||
			rateLimited(cause)
	}
	return true
}

// IsPermanent reports whether err is a definitive rejection, such as
// bad credentials or an invalid request, rather than a condition that
// could clear up on its own.
func IsPermanent(err error) bool {
	switch cause := errors.Cause(err).(type) {
	case *googleapi.Error:
		if cause.Code == http.StatusTooManyRequests {
			return false
		}
		if cause.Code >= 400 && cause.Code < 500 {
			return !rateLimited(cause)
		}
	}
	return false
}

// rateLimited reports whether a 4xx response is really a quota
// rejection.  Gmail reports some per-user rate limits as 403 with a
// distinguishing reason rather than as 429.
func rateLimited(apiErr *googleapi.Error) bool {
	for _, item := range apiErr.Errors {
		switch item.Reason {
		case "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}
