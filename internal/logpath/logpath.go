// Package logpath maps versions to log-entry paths, builds temporary
// commit-staging paths, and locates the latest checkpoint at or before a
// given version. The checkpoint-path regexes are compiled once at
// package init and matched against POSIX-style "/" paths regardless of
// the backend's own separator convention, since listings are free-form
// strings.
package logpath

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/kartikbazzad/deltalog/internal/storage"
)

const versionDigits = 20

var (
	singlePartCheckpointRe = regexp.MustCompile(`(?:^|/)(\d{20})\.checkpoint\.parquet$`)
	multiPartCheckpointRe  = regexp.MustCompile(`(?:^|/)(\d{20})\.checkpoint\.(\d{10})\.(\d{10})\.parquet$`)
)

// CheckPoint describes a checkpoint file set. Equality is defined
// solely by Version: size/parts can be learned lazily and must not
// block detecting "already restored".
type CheckPoint struct {
	Version int64
	Size    int64
	Parts   *uint32
}

// SameVersion implements the version-only equality CheckPoint relies on.
func (c CheckPoint) SameVersion(other CheckPoint) bool {
	return c.Version == other.Version
}

// Locator maps versions to paths under a single table's log directory.
type Locator struct {
	logPath string
	join    func(...string) string
}

func New(logPath string, join func(...string) string) *Locator {
	return &Locator{logPath: logPath, join: join}
}

// VersionToLogPath returns "<logPath>/<20-digit zero-padded v>.json".
func (l *Locator) VersionToLogPath(v int64) string {
	return l.join(l.logPath, fmt.Sprintf("%0*d.json", versionDigits, v))
}

// TmpCommitLogPath returns "<logPath>/_commit_<token>.json" for a
// random token rendered as a string.
func (l *Locator) TmpCommitLogPath(token string) string {
	return l.join(l.logPath, fmt.Sprintf("_commit_%s.json", token))
}

// LastCheckpointPath returns "<logPath>/_last_checkpoint".
func (l *Locator) LastCheckpointPath() string {
	return l.join(l.logPath, "_last_checkpoint")
}

// LogDir returns the directory this locator resolves paths under.
func (l *Locator) LogDir() string { return l.logPath }

// SinglePartCheckpointPath returns the path for a one-file checkpoint.
func (l *Locator) SinglePartCheckpointPath(version int64) string {
	return l.join(l.logPath, fmt.Sprintf("%0*d.checkpoint.parquet", versionDigits, version))
}

// MultiPartCheckpointPath returns the path for part `index` (1-based)
// of `total` parts of a checkpoint at `version`.
func (l *Locator) MultiPartCheckpointPath(version int64, index, total uint32) string {
	return l.join(l.logPath, fmt.Sprintf("%0*d.checkpoint.%010d.%010d.parquet", versionDigits, version, index, total))
}

// PartPaths computes the concrete part paths for a checkpoint
// descriptor: one path if Parts is nil/absent (or zero), otherwise the
// full enumerated set.
func (l *Locator) PartPaths(cp CheckPoint) []string {
	if cp.Parts == nil || *cp.Parts == 0 {
		return []string{l.SinglePartCheckpointPath(cp.Version)}
	}
	total := *cp.Parts
	paths := make([]string, 0, total)
	for i := uint32(1); i <= total; i++ {
		paths = append(paths, l.MultiPartCheckpointPath(cp.Version, i, total))
	}
	return paths
}

// multiPartKey groups parts of the same multi-part checkpoint together
// while scanning an unordered listing.
type multiPartKey struct {
	version int64
	total   uint32
}

// FindLatestCheckpointForVersion scans the log directory and returns
// the checkpoint whose version is maximal subject to version <= limit.
// It matches both the single-part and multi-part regexes
// against every listed path, grouping multi-part entries by
// (version, total) as it goes. When both a single-part and multi-part
// checkpoint exist at the same version, this implementation retains
// whichever is seen last while scanning the listing.
//
// Returns (CheckPoint{}, false, nil) when no checkpoint at or before
// limit exists.
func (l *Locator) FindLatestCheckpointForVersion(ctx context.Context, backend storage.Backend, limit int64) (CheckPoint, bool, error) {
	listing := backend.List(ctx, l.logPath)
	defer listing.Close()

	multi := make(map[multiPartKey]uint32) // version+total -> parts seen
	best := CheckPoint{}
	found := false

	consider := func(cp CheckPoint) {
		if cp.Version > limit {
			return
		}
		if !found || cp.Version >= best.Version {
			best = cp
			found = true
		}
	}

	for listing.Next() {
		path := listing.Object().Path

		if m := singlePartCheckpointRe.FindStringSubmatch(path); m != nil {
			v, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			consider(CheckPoint{Version: v})
			continue
		}

		if m := multiPartCheckpointRe.FindStringSubmatch(path); m != nil {
			v, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			total64, err := strconv.ParseInt(m[3], 10, 64)
			if err != nil {
				continue
			}
			total := uint32(total64)
			key := multiPartKey{version: v, total: total}
			multi[key]++
			if multi[key] == total {
				t := total
				consider(CheckPoint{Version: v, Parts: &t})
			}
		}
	}
	if err := listing.Err(); err != nil {
		return CheckPoint{}, false, err
	}

	return best, found, nil
}
