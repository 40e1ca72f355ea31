package retention

import (
	"path"
	"sort"
	"time"

	"github.com/mozilla-releng/linux-pkg-manager/pkg/apt"
	zlog "github.com/mozilla-releng/linux-pkg-manager/pkg/log"
)

const hoursPerDay = 24

// Window is the retention window: the maximum age, in days, an artifact may
// reach before it is eligible for deletion.
type Window struct {
	Days int
}

// Expired reports whether an artifact created at the given time has outlived
// the window. The inequality is strict: a version exactly at the boundary is
// retained.
func (w Window) Expired(now, created time.Time) bool {
	return now.Sub(created) > time.Duration(w.Days)*hoursPerDay*time.Hour
}

// Selector accumulates expired version targets as the source stream is
// consumed. It holds only the output, never the unfiltered universe.
type Selector struct {
	window  Window
	now     time.Time
	targets map[string][]string
	seen    map[string]struct{}
	unique  map[string]struct{}
	log     zlog.Logger
}

// NewSelector captures now once; every expiry comparison of the run uses
// that single timestamp.
func NewSelector(window Window, now time.Time, log zlog.Logger) *Selector {
	return &Selector{
		window:  window,
		now:     now,
		targets: make(map[string][]string),
		seen:    make(map[string]struct{}),
		unique:  make(map[string]struct{}),
		log:     log,
	}
}

// Consider adds the version to the expired set when it has outlived the
// window. Targets are deduplicated by their full resource identity.
func (s *Selector) Consider(scope, versionName string, created time.Time) bool {
	if !s.window.Expired(s.now, created) {
		return false
	}

	if _, ok := s.seen[versionName]; ok {
		return false
	}

	s.seen[versionName] = struct{}{}
	s.targets[scope] = append(s.targets[scope], versionName)
	s.unique[path.Base(versionName)] = struct{}{}

	return true
}

// ConsiderRecord applies the apt-index expiry rule: only nightly records
// carry a build timestamp, so only the nightly channel is eligible for
// time-based retention. Release and beta records are always retained.
func (s *Selector) ConsiderRecord(scope string, record *apt.PackageRecord) bool {
	if !record.IsNightly() {
		return false
	}

	versionName := scope + "/packages/" + record.Name + "/versions/" + record.RawVersion

	return s.Consider(scope, versionName, record.BuildTime)
}

// Plan is the selector's output: expired targets grouped by scope, plus the
// deduplicated bare version identifiers for reporting.
type Plan struct {
	TargetsByScope map[string][]string
	UniqueVersions []string
}

// Plan freezes the accumulated state into a deterministic, sorted plan.
func (s *Selector) Plan() *Plan {
	plan := &Plan{
		TargetsByScope: make(map[string][]string, len(s.targets)),
		UniqueVersions: make([]string, 0, len(s.unique)),
	}

	for scope, names := range s.targets {
		sorted := make([]string, len(names))
		copy(sorted, names)
		sort.Strings(sorted)

		plan.TargetsByScope[scope] = sorted
	}

	for version := range s.unique {
		plan.UniqueVersions = append(plan.UniqueVersions, version)
	}

	sort.Strings(plan.UniqueVersions)

	return plan
}

// Scopes returns the plan's scopes in deterministic order.
func (p *Plan) Scopes() []string {
	scopes := make([]string, 0, len(p.TargetsByScope))
	for scope := range p.TargetsByScope {
		scopes = append(scopes, scope)
	}

	sort.Strings(scopes)

	return scopes
}

func (p *Plan) TotalTargets() int {
	total := 0
	for _, names := range p.TargetsByScope {
		total += len(names)
	}

	return total
}
