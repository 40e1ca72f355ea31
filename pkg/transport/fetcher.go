package transport

import (
	"context"
	"time"

	"gopkg.in/resty.v1"

	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
)

const fetchTimeout = 5 * time.Minute

// Fetcher retrieves a raw document at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type httpFetcher struct {
	client *resty.Client
	log    zlog.Logger
}

func NewHTTPFetcher(log zlog.Logger) Fetcher {
	client := resty.New().SetTimeout(fetchTimeout)

	return &httpFetcher{client: client, log: log}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		f.log.Error().Err(err).Str("url", url).Msg("failed to fetch document")

		return nil, Classify(err)
	}

	if !resp.IsSuccess() {
		f.log.Error().Str("url", url).Int("status", resp.StatusCode()).Msg("unexpected response status")

		return nil, &Error{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode(),
			Cause:      &FetchError{URL: url, StatusCode: resp.StatusCode()},
		}
	}

	return resp.Body(), nil
}
