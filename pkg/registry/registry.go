package registry

import (
	"context"
	"regexp"
	"time"
)

// Repository is a resolved registry repository resource.
type Repository struct {
	Name string
}

// Package is one package under a repository; Name is the full resource path.
type Package struct {
	Name string
}

// Version is one version of a package.
type Version struct {
	Name       string
	CreateTime time.Time
}

// PackageIterator produces a lazy, finite, non-restartable sequence of
// packages. Next returns zerr.ErrIteratorDone when the sequence is exhausted.
type PackageIterator interface {
	Next() (*Package, error)
}

// VersionIterator is the version counterpart of PackageIterator.
type VersionIterator interface {
	Next() (*Version, error)
}

// Operation is a server-side long-running operation; Wait blocks until the
// operation reaches a terminal state and surfaces its terminal error.
type Operation interface {
	Wait(ctx context.Context) error
}

// Client is the registry capability the pipeline consumes. It hides the
// concrete transport used to reach the registry.
type Client interface {
	GetRepository(ctx context.Context, name string) (*Repository, error)
	ListPackages(ctx context.Context, parent string, pageSize int32) PackageIterator
	ListVersions(ctx context.Context, parent string, pageSize int32) VersionIterator
	BatchDeleteVersions(ctx context.Context, parent string, names []string, validateOnly bool) (Operation, error)
	Close() error
}

// CompileNamePattern compiles a package name pattern with match-from-start
// semantics: the pattern must match a prefix of the short name, not
// necessarily the whole of it. Callers needing an exact match anchor with $.
func CompileNamePattern(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + expr + `)`)
}
