package apt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver"

	zerr "github.com/mozilla-releng/linux-pkg-manager/errors"
)

// buildTimeLayout is the 14-digit nightly postfix, YYYYMMDDHHMMSS.
const buildTimeLayout = "20060102150405"

const buildNumberPrefix = "build"

// upstreamPattern recognizes Firefox upstream versions with an optional
// release-channel marker ("a" for nightly, "b" for beta).
//
//nolint:gochecknoglobals
var upstreamPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)(?:([ab])(\d+))?$`)

type Channel int

const (
	ChannelRelease Channel = iota
	ChannelBeta
	ChannelNightly
)

func (c Channel) String() string {
	switch c {
	case ChannelNightly:
		return "nightly"
	case ChannelBeta:
		return "beta"
	default:
		return "release"
	}
}

// PackageRecord is one parsed control block of a Packages index.
// Exactly one of BuildTime/BuildNumber is meaningful, depending on Channel.
type PackageRecord struct {
	Name        string
	RawVersion  string
	Version     *semver.Version
	Channel     Channel
	BuildTime   time.Time
	BuildNumber int
	// Fields keeps every key of the block verbatim, including ones this
	// tool doesn't interpret, for diagnostics and later stages.
	Fields map[string]string
}

func (r *PackageRecord) IsNightly() bool {
	return r.Channel == ChannelNightly
}

// ParseControlBlock parses a single blank-line-delimited control block.
func ParseControlBlock(block string) (*PackageRecord, error) {
	fields := parseFields(block)

	name, ok := fields["Package"]
	if !ok {
		return nil, fmt.Errorf("%w: Package", zerr.ErrMissingField)
	}

	rawVersion, ok := fields["Version"]
	if !ok {
		return nil, fmt.Errorf("%w: Version (package %q)", zerr.ErrMissingField, name)
	}

	record := &PackageRecord{
		Name:       name,
		RawVersion: rawVersion,
		Fields:     fields,
	}

	upstream, postfix, found := strings.Cut(rawVersion, "~")
	if !found {
		return nil, fmt.Errorf("%w: %q has no postfix (package %q)",
			zerr.ErrMalformedVersion, rawVersion, name)
	}

	version, channel, err := parseUpstreamVersion(upstream)
	if err != nil {
		return nil, fmt.Errorf("%w (package %q)", err, name)
	}

	record.Version = version
	record.Channel = channel

	if channel == ChannelNightly {
		buildTime, err := parseBuildTime(postfix)
		if err != nil {
			return nil, fmt.Errorf("%w (package %q)", err, name)
		}

		record.BuildTime = buildTime
	} else {
		buildNumber, err := parseBuildNumber(postfix)
		if err != nil {
			return nil, fmt.Errorf("%w (package %q)", err, name)
		}

		record.BuildNumber = buildNumber
	}

	return record, nil
}

// parseFields splits a control block into its Key: Value lines.
// Indented lines continue the previous field, per the Debian grammar.
func parseFields(block string) map[string]string {
	fields := make(map[string]string)

	var lastKey string

	for _, line := range strings.Split(block, "\n") {
		if line == "" {
			continue
		}

		if line[0] == ' ' || line[0] == '\t' {
			if lastKey != "" {
				fields[lastKey] += "\n" + strings.TrimSpace(line)
			}

			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		lastKey = key
		fields[key] = strings.TrimSpace(value)
	}

	return fields
}

func parseUpstreamVersion(upstream string) (*semver.Version, Channel, error) {
	match := upstreamPattern.FindStringSubmatch(upstream)
	if match == nil {
		return nil, ChannelRelease, fmt.Errorf("%w: unrecognized upstream version %q",
			zerr.ErrMalformedVersion, upstream)
	}

	version, err := semver.NewVersion(match[1])
	if err != nil {
		return nil, ChannelRelease, fmt.Errorf("%w: upstream version %q: %v",
			zerr.ErrMalformedVersion, upstream, err)
	}

	switch match[2] {
	case "a":
		return version, ChannelNightly, nil
	case "b":
		return version, ChannelBeta, nil
	default:
		return version, ChannelRelease, nil
	}
}

func parseBuildTime(postfix string) (time.Time, error) {
	if len(postfix) != len(buildTimeLayout) {
		return time.Time{}, fmt.Errorf("%w: nightly postfix %q is not a 14-digit timestamp",
			zerr.ErrMalformedVersion, postfix)
	}

	buildTime, err := time.Parse(buildTimeLayout, postfix)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: nightly postfix %q: %v",
			zerr.ErrMalformedVersion, postfix, err)
	}

	return buildTime, nil
}

func parseBuildNumber(postfix string) (int, error) {
	rest, found := strings.CutPrefix(postfix, buildNumberPrefix)
	if !found {
		return 0, fmt.Errorf("%w: postfix %q has no %q prefix",
			zerr.ErrMalformedVersion, postfix, buildNumberPrefix)
	}

	buildNumber, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("%w: build number %q: %v", zerr.ErrMalformedVersion, rest, err)
	}

	return buildNumber, nil
}
