package retry

import (
	"context"
	"testing"
	"time"

	"github.com/matta/mailsheet/internal/message"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func apiErr(code int, reasons ...string) error {
	e := &googleapi.Error{Code: code}
	for _, r := range reasons {
		e.Errors = append(e.Errors, googleapi.ErrorItem{Reason: r})
	}
	return e
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"plain transport error", errors.New("connection reset"), true},
		{"too many requests", apiErr(429), true},
		{"server error", apiErr(500), true},
		{"service unavailable", apiErr(503), true},
		{"rate limited 403", apiErr(403, "userRateLimitExceeded"), true},
		{"forbidden", apiErr(403, "insufficientPermissions"), false},
		{"unauthorized", apiErr(401), false},
		{"bad request", apiErr(400), false},
		{"wrapped api error", errors.Wrap(apiErr(502), "fetching"), true},
		{"message gone", errors.Wrap(message.ErrNotFound, "message abc"), false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, retryable(tc.err))
		})
	}
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", apiErr(401), true},
		{"forbidden", apiErr(403), true},
		{"bad request", apiErr(400), true},
		{"wrapped forbidden", errors.Wrap(apiErr(403), "appending rows"), true},
		{"rate limited 403", apiErr(403, "rateLimitExceeded"), false},
		{"too many requests", apiErr(429), false},
		{"server error", apiErr(500), false},
		{"plain error", errors.New("boom"), false},
		{"message gone", message.ErrNotFound, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsPermanent(tc.err))
		})
	}
}

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func TestDoRecoversFromTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return apiErr(503)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "op", func() error {
		calls++
		return errors.Wrap(apiErr(401), "listing")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsPermanent(err))
}

func TestDoDoesNotRetryMissingMessages(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "op", func() error {
		calls++
		return errors.Wrap(message.ErrNotFound, "message abc")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, message.ErrNotFound))
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttemptBudget(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "op", func() error {
		calls++
		return apiErr(500)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoZeroValueTriesOnce(t *testing.T) {
	calls := 0
	err := Policy{}.Do(context.Background(), "op", func() error {
		calls++
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := fastPolicy(10).Do(ctx, "op", func() error {
		calls++
		return apiErr(503)
	})
	require.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
