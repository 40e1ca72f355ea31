package registry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/retry"
)

const defaultPageSize = 1000

// Enumerator walks a repository's packages and their versions, page by page,
// retrying transient page-fetch failures. It never materializes the whole
// repository: every package/version pair is handed to the caller as soon as
// its page arrives.
type Enumerator struct {
	client   Client
	pageSize int32
	log      zlog.Logger
}

func NewEnumerator(client Client, log zlog.Logger) *Enumerator {
	return &Enumerator{client: client, pageSize: defaultPageSize, log: log}
}

// Enumerate resolves the repository, then yields every version of every
// package whose short name matches pattern. Exhausted retries abort the
// enumeration; partial results are never silently treated as complete.
func (e *Enumerator) Enumerate(ctx context.Context, repoName string, pattern *regexp.Regexp,
	yield func(pkg *Package, ver *Version) error,
) error {
	var repo *Repository

	err := retry.Do(ctx, e.log, "get repository", func() error {
		resolved, rerr := e.client.GetRepository(ctx, repoName)
		repo = resolved

		return rerr
	})
	if err != nil {
		return fmt.Errorf("resolving repository %s: %w", repoName, err)
	}

	e.log.Info().Str("repository", repo.Name).Msg("found repository")

	packages := e.client.ListPackages(ctx, repo.Name, e.pageSize)

	for {
		pkg, err := nextWithRetry(ctx, e.log, "list packages", packages.Next)
		if errors.Is(err, zerr.ErrIteratorDone) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("listing packages under %s: %w", repo.Name, err)
		}

		if !pattern.MatchString(path.Base(pkg.Name)) {
			continue
		}

		e.log.Info().Str("package", path.Base(pkg.Name)).Msg("looking for expired package versions")

		if err := e.enumerateVersions(ctx, pkg, yield); err != nil {
			return err
		}
	}
}

func (e *Enumerator) enumerateVersions(ctx context.Context, pkg *Package,
	yield func(pkg *Package, ver *Version) error,
) error {
	versions := e.client.ListVersions(ctx, pkg.Name, e.pageSize)

	for {
		ver, err := nextWithRetry(ctx, e.log, "list versions", versions.Next)
		if errors.Is(err, zerr.ErrIteratorDone) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("listing versions of %s: %w", pkg.Name, err)
		}

		if err := yield(pkg, ver); err != nil {
			return err
		}
	}
}

func nextWithRetry[T any](ctx context.Context, log zlog.Logger, op string,
	next func() (*T, error),
) (*T, error) {
	var item *T

	// ErrIteratorDone is not classified retryable, so it falls straight
	// through the retry wrapper to the caller.
	err := retry.Do(ctx, log, op, func() error {
		fetched, nerr := next()
		if nerr != nil {
			return nerr
		}

		item = fetched

		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}
