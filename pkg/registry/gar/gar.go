// Package gar binds the registry client capability to Google Artifact
// Registry. Everything upstream of this package is transport-agnostic.
package gar

import (
	"context"
	"errors"
	"fmt"

	artifactregistry "cloud.google.com/go/artifactregistry/apiv1"
	"cloud.google.com/go/artifactregistry/apiv1/artifactregistrypb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

type Client struct {
	client *artifactregistry.Client
}

func NewClient(ctx context.Context) (*Client, error) {
	client, err := artifactregistry.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating artifact registry client: %w", mapError(err))
	}

	return &Client{client: client}, nil
}

func (c *Client) GetRepository(ctx context.Context, name string) (*registry.Repository, error) {
	repo, err := c.client.GetRepository(ctx, &artifactregistrypb.GetRepositoryRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s", zerr.ErrRepoNotFound, name)
		}

		return nil, mapError(err)
	}

	return &registry.Repository{Name: repo.GetName()}, nil
}

func (c *Client) ListPackages(ctx context.Context, parent string, pageSize int32) registry.PackageIterator {
	it := c.client.ListPackages(ctx, &artifactregistrypb.ListPackagesRequest{
		Parent:   parent,
		PageSize: pageSize,
	})

	return &packageIterator{it: it}
}

func (c *Client) ListVersions(ctx context.Context, parent string, pageSize int32) registry.VersionIterator {
	it := c.client.ListVersions(ctx, &artifactregistrypb.ListVersionsRequest{
		Parent:   parent,
		PageSize: pageSize,
	})

	return &versionIterator{it: it}
}

func (c *Client) BatchDeleteVersions(ctx context.Context, parent string, names []string, validateOnly bool,
) (registry.Operation, error) {
	op, err := c.client.BatchDeleteVersions(ctx, &artifactregistrypb.BatchDeleteVersionsRequest{
		Parent:       parent,
		Names:        names,
		ValidateOnly: validateOnly,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &operation{op: op}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

type packageIterator struct {
	it *artifactregistry.PackageIterator
}

func (pi *packageIterator) Next() (*registry.Package, error) {
	pkg, err := pi.it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, zerr.ErrIteratorDone
	}

	if err != nil {
		return nil, mapError(err)
	}

	return &registry.Package{Name: pkg.GetName()}, nil
}

type versionIterator struct {
	it *artifactregistry.VersionIterator
}

func (vi *versionIterator) Next() (*registry.Version, error) {
	ver, err := vi.it.Next()
	if errors.Is(err, iterator.Done) {
		return nil, zerr.ErrIteratorDone
	}

	if err != nil {
		return nil, mapError(err)
	}

	return &registry.Version{
		Name:       ver.GetName(),
		CreateTime: ver.GetCreateTime().AsTime(),
	}, nil
}

type operation struct {
	op *artifactregistry.BatchDeleteVersionsOperation
}

func (o *operation) Wait(ctx context.Context) error {
	if err := o.op.Wait(ctx); err != nil {
		return mapError(err)
	}

	return nil
}

// mapError projects a gRPC error onto the closed transport error
// enumeration the retry classifier understands.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return transport.Classify(err)
	}

	switch st.Code() {
	case codes.DeadlineExceeded:
		return &transport.Error{Kind: transport.KindTimeout, Cause: err}
	case codes.Unauthenticated:
		return &transport.Error{Kind: transport.KindAuth, Cause: transport.Classify(errors.Unwrap(err))}
	default:
		if httpCode := httpStatusFromCode(st.Code()); httpCode != 0 {
			return &transport.Error{Kind: transport.KindStatus, StatusCode: httpCode, Cause: err}
		}

		return transport.Classify(err)
	}
}

func httpStatusFromCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return 400
	case codes.PermissionDenied:
		return 403
	case codes.NotFound:
		return 404
	case codes.Aborted, codes.AlreadyExists:
		return 409
	case codes.FailedPrecondition:
		return 412
	case codes.ResourceExhausted:
		return 429
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return 500
	case codes.Unimplemented:
		return 501
	case codes.Unavailable:
		return 503
	default:
		return 0
	}
}
