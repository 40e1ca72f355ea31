package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/apt"
	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/registry/gar"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/retention"
	"github.com/mozilla-releng/linux-pkg-manager/pkg/transport"
)

const (
	supportedProduct = "firefox"
	supportedChannel = "nightly"
	supportedFormat  = "deb"
)

// CleanupOptions is the validated flag set of the clean-up subcommand.
type CleanupOptions struct {
	// registry path
	Package string

	// apt path
	Product  string
	Channel  string
	Format   string
	IndexURL string

	Repository    string
	Region        string
	RetentionDays int
	DryRun        bool
	SkipDelete    bool
	LogLevel      string

	// resolved from the environment, not a flag
	Project string
}

// AptPath reports which sourcing strategy the flag set selects.
func (opts *CleanupOptions) AptPath() bool {
	return opts.Product != ""
}

// Validate fails fast, before the pipeline runs, with a descriptive error.
func (opts *CleanupOptions) Validate() error {
	if opts.Repository == "" || opts.Region == "" {
		return fmt.Errorf("%w: --repository and --region are required", zerr.ErrBadConfig)
	}

	if opts.RetentionDays < 0 {
		return fmt.Errorf("%w: --retention-days must not be negative", zerr.ErrBadConfig)
	}

	if opts.Project == "" {
		return fmt.Errorf("%w: GOOGLE_CLOUD_PROJECT is not set", zerr.ErrBadConfig)
	}

	if (opts.Package == "") == (opts.Product == "") {
		return fmt.Errorf("%w: exactly one of --package and --product must be given", zerr.ErrBadConfig)
	}

	if !opts.AptPath() {
		return nil
	}

	if opts.Product != supportedProduct {
		return fmt.Errorf("%w: %q (only %q is supported)", zerr.ErrUnsupportedProduct, opts.Product, supportedProduct)
	}

	if opts.Channel != supportedChannel {
		return fmt.Errorf("%w: %q (only %q is supported)", zerr.ErrUnsupportedChannel, opts.Channel, supportedChannel)
	}

	if opts.Format != supportedFormat {
		return fmt.Errorf("%w: %q (only %q is supported)", zerr.ErrUnsupportedFormat, opts.Format, supportedFormat)
	}

	return nil
}

// Scope is the opaque repository resource the registry client consumes.
func (opts *CleanupOptions) Scope() string {
	return fmt.Sprintf("projects/%s/locations/%s/repositories/%s",
		opts.Project, opts.Region, opts.Repository)
}

// aptIndexURL is the repository's apt endpoint; GAR serves the distribution
// under the repository's own name.
func (opts *CleanupOptions) aptIndexURL() string {
	if opts.IndexURL != "" {
		return opts.IndexURL
	}

	return fmt.Sprintf("https://%s-apt.pkg.dev/projects/%s/%s/dists/%s/",
		opts.Region, opts.Project, opts.Repository, opts.Repository)
}

func newCleanupCmd() *cobra.Command {
	opts := &CleanupOptions{}

	cleanupCmd := &cobra.Command{
		Use:   "clean-up",
		Short: "`clean-up` deletes expired package versions",
		Long:  "`clean-up` deletes package versions that outlived the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			envConfig := viper.New()
			_ = envConfig.BindEnv("project", "GOOGLE_CLOUD_PROJECT")
			opts.Project = envConfig.GetString("project")

			if err := opts.Validate(); err != nil {
				return err
			}

			// errors past this point aren't usage errors
			cmd.SilenceUsage = true

			logger := zlog.NewLogger(opts.LogLevel, "")

			client, err := gar.NewClient(cmd.Context())
			if err != nil {
				logger.Error().Err(err).Msg("failed to create registry client")

				return err
			}
			defer client.Close()

			fetcher := transport.NewHTTPFetcher(logger)

			return RunCleanup(cmd.Context(), opts, client, fetcher, logger, cmd.OutOrStdout())
		},
	}

	cleanupCmd.Flags().StringVar(&opts.Package, "package", "",
		"name pattern of the packages to clean up (ex. \"firefox-nightly-*\")")
	cleanupCmd.Flags().StringVar(&opts.Product, "product", "",
		"product whose apt index should be cleaned up (only \"firefox\")")
	cleanupCmd.Flags().StringVar(&opts.Channel, "channel", "",
		"channel of the packages (only \"nightly\")")
	cleanupCmd.Flags().StringVar(&opts.Format, "format", "",
		"package format (only \"deb\")")
	cleanupCmd.Flags().StringVar(&opts.IndexURL, "index-url", "",
		"override the apt index base URL")
	cleanupCmd.Flags().StringVar(&opts.Repository, "repository", "", "repository to clean up")
	cleanupCmd.Flags().StringVar(&opts.Region, "region", "", "region of the repository")
	cleanupCmd.Flags().IntVar(&opts.RetentionDays, "retention-days", 0,
		"retention period in days for the selected packages")
	cleanupCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false,
		"do a no-op run and print a summary of the operations that would be executed")
	cleanupCmd.Flags().BoolVar(&opts.SkipDelete, "skip-delete", false,
		"skip the delete versions step (for testing)")
	cleanupCmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "log level")

	return cleanupCmd
}

// RunCleanup drives one retention run end to end: enumerate, select, report,
// delete. now is captured once so every expiry comparison agrees.
func RunCleanup(ctx context.Context, opts *CleanupOptions, client registry.Client,
	fetcher transport.Fetcher, logger zlog.Logger, out io.Writer,
) error {
	now := time.Now().UTC()
	window := retention.Window{Days: opts.RetentionDays}
	selector := retention.NewSelector(window, now, logger)

	deleteOpts := retention.DeleteOptions{
		BatchSize:  retention.RegistryBatchLimit,
		Limit:      retention.RegistryBatchLimit,
		DryRun:     opts.DryRun,
		SkipDelete: opts.SkipDelete,
	}

	if opts.AptPath() {
		indexFetcher := apt.NewIndexFetcher(fetcher, logger)

		records, err := indexFetcher.FetchIndex(ctx, opts.aptIndexURL())
		if err != nil {
			return err
		}

		for _, record := range records {
			selector.ConsiderRecord(opts.Scope(), record)
		}

		deleteOpts.BatchSize = retention.BulkBatchLimit
		deleteOpts.Limit = retention.BulkBatchLimit
	} else {
		pattern, err := registry.CompileNamePattern(opts.Package)
		if err != nil {
			return fmt.Errorf("%w: bad --package pattern: %v", zerr.ErrBadConfig, err)
		}

		enumerator := registry.NewEnumerator(client, logger)

		err = enumerator.Enumerate(ctx, opts.Scope(), pattern,
			func(pkg *registry.Package, ver *registry.Version) error {
				selector.Consider(pkg.Name, ver.Name, ver.CreateTime)

				return nil
			})
		if err != nil {
			return err
		}
	}

	plan := selector.Plan()

	writeReport(out, plan)

	if plan.TotalTargets() == 0 {
		logger.Info().Msg("no expired package versions found, nothing to do")

		return nil
	}

	executor := retention.NewExecutor(client, logger)

	summary, err := executor.Delete(ctx, plan, deleteOpts)
	if err != nil {
		return err
	}

	logger.Info().Int("attempted", summary.Attempted).Int("deleted", summary.Deleted).
		Msg("done cleaning up")

	return nil
}
