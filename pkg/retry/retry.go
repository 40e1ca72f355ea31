package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

const (
	initialInterval = 500 * time.Millisecond
	maxInterval     = 30 * time.Second
	maxElapsedTime  = 5 * time.Minute
)

//nolint:gochecknoglobals
var transientStatusCodes = map[int]struct{}{
	429: {},
	500: {},
	502: {},
	503: {},
	504: {},
}

// Some retryable statuses don't belong to the transient server-side classes.
//
//nolint:gochecknoglobals
var additionalRetryableStatusCodes = map[int]struct{}{
	408: {},
}

// ShouldRetry is the predicate for determining when to retry.
func ShouldRetry(err error) bool {
	terr, ok := transport.AsError(err)
	if !ok {
		return false
	}

	switch terr.Kind {
	case transport.KindConnReset, transport.KindTimeout, transport.KindChunkedEncoding:
		return true
	case transport.KindStatus:
		if _, ok := transientStatusCodes[terr.StatusCode]; ok {
			return true
		}

		_, ok := additionalRetryableStatusCodes[terr.StatusCode]

		return ok
	case transport.KindAuth:
		if terr.Cause != nil {
			return ShouldRetry(terr.Cause)
		}

		return false
	default:
		return false
	}
}

// Do runs fn under an exponential backoff budget, retrying only errors that
// ShouldRetry classifies as transient. Non-retryable errors abort immediately.
func Do(ctx context.Context, log zlog.Logger, op string, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialInterval
	policy.MaxInterval = maxInterval
	policy.MaxElapsedTime = maxElapsedTime

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		if !ShouldRetry(err) {
			return backoff.Permanent(err)
		}

		log.Warn().Err(err).Str("op", op).Msg("transient error, retrying")

		return err
	}, backoff.WithContext(policy, ctx))
}
