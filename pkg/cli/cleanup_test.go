package cli_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/cli"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/test/mocks"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

func validRegistryOptions() *cli.CleanupOptions {
	return &cli.CleanupOptions{
		Package:       "firefox-nightly",
		Repository:    "mozilla",
		Region:        "us",
		RetentionDays: 60,
		Project:       "moz",
	}
}

func validAptOptions() *cli.CleanupOptions {
	return &cli.CleanupOptions{
		Product:       "firefox",
		Channel:       "nightly",
		Format:        "deb",
		Repository:    "mozilla",
		Region:        "us",
		RetentionDays: 60,
		Project:       "moz",
	}
}

func TestCleanupOptionsValidate(t *testing.T) {
	Convey("A valid registry flag set passes", t, func() {
		So(validRegistryOptions().Validate(), ShouldBeNil)
	})

	Convey("A valid apt flag set passes", t, func() {
		So(validAptOptions().Validate(), ShouldBeNil)
	})

	Convey("Repository and region are required", t, func() {
		opts := validRegistryOptions()
		opts.Repository = ""
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)

		opts = validRegistryOptions()
		opts.Region = ""
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)
	})

	Convey("Negative retention is rejected", t, func() {
		opts := validRegistryOptions()
		opts.RetentionDays = -1
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)
	})

	Convey("A missing project is rejected", t, func() {
		opts := validRegistryOptions()
		opts.Project = ""
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)
	})

	Convey("Exactly one sourcing strategy must be selected", t, func() {
		opts := validRegistryOptions()
		opts.Product = "firefox"
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)

		opts = validRegistryOptions()
		opts.Package = ""
		So(opts.Validate(), ShouldWrap, zerr.ErrBadConfig)
	})

	Convey("Only firefox/nightly/deb are supported on the apt path", t, func() {
		opts := validAptOptions()
		opts.Product = "thunderbird"
		So(opts.Validate(), ShouldWrap, zerr.ErrUnsupportedProduct)

		opts = validAptOptions()
		opts.Channel = "release"
		So(opts.Validate(), ShouldWrap, zerr.ErrUnsupportedChannel)

		opts = validAptOptions()
		opts.Format = "rpm"
		So(opts.Validate(), ShouldWrap, zerr.ErrUnsupportedFormat)
	})

	Convey("The repository scope is assembled from project, region and repository", t, func() {
		So(validRegistryOptions().Scope(), ShouldEqual, "projects/moz/locations/us/repositories/mozilla")
	})
}

func TestRunCleanupRegistryPath(t *testing.T) {
	logger := log.NewLogger("error", "")
	scope := "projects/moz/locations/us/repositories/mozilla"

	Convey("Expired versions are reported and deleted", t, func() {
		now := time.Now().UTC()

		var deletes []struct {
			parent       string
			names        []string
			validateOnly bool
		}

		client := mocks.RegistryClientMock{
			ListPackagesFn: func(ctx context.Context, parent string, pageSize int32) registry.PackageIterator {
				return mocks.StaticPackageIterator([]*registry.Package{
					{Name: parent + "/packages/firefox-nightly"},
				})
			},
			ListVersionsFn: func(ctx context.Context, parent string, pageSize int32) registry.VersionIterator {
				return mocks.StaticVersionIterator([]*registry.Version{
					{Name: parent + "/versions/121.0a1~20231101103000", CreateTime: now.AddDate(0, 0, -90)},
					{Name: parent + "/versions/122.0a1~20240114103000", CreateTime: now.AddDate(0, 0, -1)},
				})
			},
			BatchDeleteVersionsFn: func(ctx context.Context, parent string, names []string, validateOnly bool,
			) (registry.Operation, error) {
				deletes = append(deletes, struct {
					parent       string
					names        []string
					validateOnly bool
				}{parent, names, validateOnly})

				return mocks.OperationMock{}, nil
			},
		}

		out := &bytes.Buffer{}
		err := cli.RunCleanup(context.Background(), validRegistryOptions(), client, nil, logger, out)
		So(err, ShouldBeNil)

		So(out.String(), ShouldContainSubstring, "a total of 1 expired versions")
		So(out.String(), ShouldContainSubstring, "121.0a1~20231101103000")
		So(out.String(), ShouldNotContainSubstring, "122.0a1~20240114103000")

		So(deletes, ShouldHaveLength, 1)
		So(deletes[0].parent, ShouldEqual, scope+"/packages/firefox-nightly")
		So(deletes[0].validateOnly, ShouldBeFalse)
	})

	Convey("Zero expired targets means no deletion phase", t, func() {
		calls := 0

		client := mocks.RegistryClientMock{
			BatchDeleteVersionsFn: func(ctx context.Context, parent string, names []string, validateOnly bool,
			) (registry.Operation, error) {
				calls++

				return mocks.OperationMock{}, nil
			},
		}

		out := &bytes.Buffer{}
		err := cli.RunCleanup(context.Background(), validRegistryOptions(), client, nil, logger, out)
		So(err, ShouldBeNil)
		So(calls, ShouldEqual, 0)
		So(out.String(), ShouldContainSubstring, "a total of 0 expired versions")
	})

	Convey("Dry run records validate-only submissions", t, func() {
		now := time.Now().UTC()
		validateOnly := make([]bool, 0)

		client := mocks.RegistryClientMock{
			ListPackagesFn: func(ctx context.Context, parent string, pageSize int32) registry.PackageIterator {
				return mocks.StaticPackageIterator([]*registry.Package{
					{Name: parent + "/packages/firefox-nightly"},
				})
			},
			ListVersionsFn: func(ctx context.Context, parent string, pageSize int32) registry.VersionIterator {
				return mocks.StaticVersionIterator([]*registry.Version{
					{Name: parent + "/versions/121.0a1~20231101103000", CreateTime: now.AddDate(0, 0, -90)},
				})
			},
			BatchDeleteVersionsFn: func(ctx context.Context, parent string, names []string, vOnly bool,
			) (registry.Operation, error) {
				validateOnly = append(validateOnly, vOnly)

				return mocks.OperationMock{}, nil
			},
		}

		opts := validRegistryOptions()
		opts.DryRun = true

		err := cli.RunCleanup(context.Background(), opts, client, nil, logger, &bytes.Buffer{})
		So(err, ShouldBeNil)
		So(validateOnly, ShouldResemble, []bool{true})
	})

	Convey("A bad package pattern is a config error", t, func() {
		opts := validRegistryOptions()
		opts.Package = "fire(fox"

		err := cli.RunCleanup(context.Background(), opts, mocks.RegistryClientMock{}, nil, logger, &bytes.Buffer{})
		So(err, ShouldWrap, zerr.ErrBadConfig)
	})
}

type mapFetcher map[string]string

func (f mapFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f[url]
	if !ok {
		return nil, &transport.Error{
			Kind:       transport.KindStatus,
			StatusCode: 404,
			Cause:      &transport.FetchError{URL: url, StatusCode: 404},
		}
	}

	return []byte(body), nil
}

func TestRunCleanupAptPath(t *testing.T) {
	logger := log.NewLogger("error", "")

	Convey("Expired nightly records are deleted through the bulk path", t, func() {
		const baseURL = "https://us-apt.pkg.dev/projects/moz/mozilla/dists/mozilla/"

		fetcher := mapFetcher{
			baseURL + "Release": "Architectures: amd64\n",
			baseURL + "main/binary-amd64/Packages": "Package: firefox-nightly\n" +
				"Version: 121.0a1~20231101103000\n" +
				"\n" +
				"Package: firefox\n" +
				"Version: 120.0~build3\n",
		}

		var deleted [][]string

		client := mocks.RegistryClientMock{
			BatchDeleteVersionsFn: func(ctx context.Context, parent string, names []string, validateOnly bool,
			) (registry.Operation, error) {
				deleted = append(deleted, names)

				return mocks.OperationMock{}, nil
			},
		}

		out := &bytes.Buffer{}
		err := cli.RunCleanup(context.Background(), validAptOptions(), client, fetcher, logger, out)
		So(err, ShouldBeNil)

		// the release record is retained regardless of age
		So(deleted, ShouldHaveLength, 1)
		So(deleted[0], ShouldHaveLength, 1)
		So(deleted[0][0], ShouldContainSubstring, "firefox-nightly/versions/121.0a1~20231101103000")
	})

	Convey("A missing index aborts the run", t, func() {
		err := cli.RunCleanup(context.Background(), validAptOptions(), mocks.RegistryClientMock{},
			mapFetcher{}, logger, &bytes.Buffer{})
		So(err, ShouldWrap, zerr.ErrBadHTTPStatusCode)
	})
}

func TestRootCmd(t *testing.T) {
	Convey("The root command exposes clean-up", t, func() {
		rootCmd := cli.NewRootCmd()

		found := false
		for _, sub := range rootCmd.Commands() {
			if sub.Name() == "clean-up" {
				found = true
			}
		}

		So(found, ShouldBeTrue)
	})
}
