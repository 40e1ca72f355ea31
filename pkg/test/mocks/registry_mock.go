package mocks

import (
	"context"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry"
)

type RegistryClientMock struct {
	GetRepositoryFn       func(ctx context.Context, name string) (*registry.Repository, error)
	ListPackagesFn        func(ctx context.Context, parent string, pageSize int32) registry.PackageIterator
	ListVersionsFn        func(ctx context.Context, parent string, pageSize int32) registry.VersionIterator
	BatchDeleteVersionsFn func(ctx context.Context, parent string, names []string, validateOnly bool,
	) (registry.Operation, error)
	CloseFn func() error
}

func (client RegistryClientMock) GetRepository(ctx context.Context, name string) (*registry.Repository, error) {
	if client.GetRepositoryFn != nil {
		return client.GetRepositoryFn(ctx, name)
	}

	return &registry.Repository{Name: name}, nil
}

func (client RegistryClientMock) ListPackages(ctx context.Context, parent string, pageSize int32,
) registry.PackageIterator {
	if client.ListPackagesFn != nil {
		return client.ListPackagesFn(ctx, parent, pageSize)
	}

	return PackageIteratorMock{}
}

func (client RegistryClientMock) ListVersions(ctx context.Context, parent string, pageSize int32,
) registry.VersionIterator {
	if client.ListVersionsFn != nil {
		return client.ListVersionsFn(ctx, parent, pageSize)
	}

	return VersionIteratorMock{}
}

func (client RegistryClientMock) BatchDeleteVersions(ctx context.Context, parent string, names []string,
	validateOnly bool,
) (registry.Operation, error) {
	if client.BatchDeleteVersionsFn != nil {
		return client.BatchDeleteVersionsFn(ctx, parent, names, validateOnly)
	}

	return OperationMock{}, nil
}

func (client RegistryClientMock) Close() error {
	if client.CloseFn != nil {
		return client.CloseFn()
	}

	return nil
}

type PackageIteratorMock struct {
	NextFn func() (*registry.Package, error)
}

func (it PackageIteratorMock) Next() (*registry.Package, error) {
	if it.NextFn != nil {
		return it.NextFn()
	}

	return nil, zerr.ErrIteratorDone
}

type VersionIteratorMock struct {
	NextFn func() (*registry.Version, error)
}

func (it VersionIteratorMock) Next() (*registry.Version, error) {
	if it.NextFn != nil {
		return it.NextFn()
	}

	return nil, zerr.ErrIteratorDone
}

type OperationMock struct {
	WaitFn func(ctx context.Context) error
}

func (op OperationMock) Wait(ctx context.Context) error {
	if op.WaitFn != nil {
		return op.WaitFn(ctx)
	}

	return nil
}

// StaticPackageIterator yields a fixed slice of packages, then done.
func StaticPackageIterator(packages []*registry.Package) registry.PackageIterator {
	i := 0

	return PackageIteratorMock{NextFn: func() (*registry.Package, error) {
		if i >= len(packages) {
			return nil, zerr.ErrIteratorDone
		}

		pkg := packages[i]
		i++

		return pkg, nil
	}}
}

// StaticVersionIterator yields a fixed slice of versions, then done.
func StaticVersionIterator(versions []*registry.Version) registry.VersionIterator {
	i := 0

	return VersionIteratorMock{NextFn: func() (*registry.Version, error) {
		if i >= len(versions) {
			return nil, zerr.ErrIteratorDone
		}

		ver := versions[i]
		i++

		return ver, nil
	}}
}
