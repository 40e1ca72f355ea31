package apt

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/retry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

const (
	releaseFile      = "Release"
	architecturesKey = "Architectures"
	packagesPathFmt  = "main/binary-%s/Packages"
	blockSeparator   = "\n\n"
)

// IndexFetcher retrieves a repository's Release manifest and the Packages
// index of every architecture it lists.
type IndexFetcher struct {
	fetcher transport.Fetcher
	log     zlog.Logger
}

func NewIndexFetcher(fetcher transport.Fetcher, log zlog.Logger) *IndexFetcher {
	return &IndexFetcher{fetcher: fetcher, log: log}
}

// FetchIndex returns every package record the repository publishes, across
// all architectures. A failed Release or Packages fetch is fatal: a partial
// package universe can't be trusted for retention decisions.
func (f *IndexFetcher) FetchIndex(ctx context.Context, baseURL string) ([]*PackageRecord, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	release, err := f.fetchRelease(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	architectures := strings.Fields(release[architecturesKey])
	if len(architectures) == 0 {
		return nil, fmt.Errorf("release manifest at %s%s lists no architectures", baseURL, releaseFile)
	}

	f.log.Info().Str("baseURL", baseURL).Strs("architectures", architectures).
		Msg("fetching per-architecture package indices")

	bodies := make([][]byte, len(architectures))

	group, groupCtx := errgroup.WithContext(ctx)

	for i, arch := range architectures {
		i, arch := i, arch

		group.Go(func() error {
			url := baseURL + fmt.Sprintf(packagesPathFmt, arch)

			var body []byte

			err := retry.Do(groupCtx, f.log, "fetch packages index", func() error {
				fetched, ferr := f.fetcher.Fetch(groupCtx, url)
				body = fetched

				return ferr
			})
			if err != nil {
				return fmt.Errorf("fetching %s: %w", url, err)
			}

			bodies[i] = body

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// results are concatenated in architecture-list order regardless of
	// fetch completion order
	records := make([]*PackageRecord, 0)

	for i, arch := range architectures {
		parsed, failures := f.parsePackages(string(bodies[i]))

		f.log.Info().Str("architecture", arch).
			Int("records", len(parsed)).Int("parseFailures", failures).
			Msg("parsed packages index")

		records = append(records, parsed...)
	}

	return records, nil
}

func (f *IndexFetcher) fetchRelease(ctx context.Context, baseURL string) (map[string]string, error) {
	url := baseURL + releaseFile

	var body []byte

	err := retry.Do(ctx, f.log, "fetch release manifest", func() error {
		fetched, ferr := f.fetcher.Fetch(ctx, url)
		body = fetched

		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	return parseFields(string(body)), nil
}

// parsePackages splits an index document on blank-line boundaries. A poison
// block is logged and skipped; it must not abort the whole enumeration.
func (f *IndexFetcher) parsePackages(document string) ([]*PackageRecord, int) {
	records := make([]*PackageRecord, 0)
	failures := 0

	for _, block := range strings.Split(document, blockSeparator) {
		if strings.TrimSpace(block) == "" {
			continue
		}

		record, err := ParseControlBlock(block)
		if err != nil {
			f.log.Warn().Err(err).Msg("dropping unparseable control block")

			failures++

			continue
		}

		records = append(records, record)
	}

	return records, failures
}
