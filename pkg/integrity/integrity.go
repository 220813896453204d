// Package integrity walks a workspace's declared file manifest,
// reconstructed by replaying the chain of packages from the empty
// workspace to the current revision, and compares each file's actual
// content hash against the one recorded when its package was built.
// Grounded on swupd/hash.go's Hashcalc: the same "recompute the content
// hash and compare" check, applied per file instead of per-manifest-entry.
package integrity

import (
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/planner"
	"github.com/clearlinux/speedupdate/pkg/remote"
	"github.com/clearlinux/speedupdate/pkg/workspace"
)

// Stage tags the coarse phase of a Check run, mirroring pkg/builder's
// Stage enum for the same "one small enum, stringable" shape.
type Stage int

// The stages a Check run passes through.
const (
	StageManifest Stage = iota
	StageHashing
)

func (s Stage) String() string {
	if s == StageManifest {
		return "Manifest"
	}
	return "Hashing"
}

// Progress is the snapshot handed by value to the caller's progress
// callback as Check walks the file manifest, carrying the same
// "checked" axis as pkg/executor.UpdateState.
type Progress struct {
	Stage         Stage
	CheckedBytes  uint64
	TotalBytes    uint64
	CurrentPath   string
}

// Report is the outcome of a Check run: either clean or carrying the
// set of paths whose content didn't match their recorded hash.
type Report struct {
	Version  model.CleanName
	Failures []string
}

// Clean reports whether the check found no mismatches.
func (r *Report) Clean() bool {
	return len(r.Failures) == 0
}

// manifestEntry is one file's expected state as of the workspace's
// current revision, derived by replaying every package's operations in
// order.
type manifestEntry struct {
	mode      uint32
	finalHash model.Hash
	finalSize uint64
}

// Check verifies every file in ws against the manifest implied by the
// repository's package chain for ws's current stable revision, holding
// the workspace lock while it runs. It does not mutate ws's persisted
// state; callers decide how to fold the result into a transition (see
// pkg/executor's Options.Check).
func Check(ws *workspace.Workspace, repo remote.RemoteRepository, progress func(Progress)) (*Report, error) {
	lock, err := ws.Lock()
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	state, err := ws.State()
	if err != nil {
		return nil, err
	}
	if state.Kind != model.StateStable && state.Kind != model.StateCorrupted {
		return nil, model.NewError(model.KindInUse, "workspace is not stable; cannot check a workspace mid-update")
	}
	return CheckVersion(ws, repo, state.StableVersion, progress)
}

// CheckVersion is Check's underlying implementation, parameterized by
// the revision to verify against instead of reading it from ws's
// persisted state. pkg/executor uses this directly to run the
// Options.Check pass against the update's goal revision before
// that revision has actually been committed as Stable.
func CheckVersion(ws *workspace.Workspace, repo remote.RemoteRepository, version model.CleanName, progress func(Progress)) (*Report, error) {
	packages, err := repo.Packages()
	if err != nil {
		return nil, err
	}

	report(progress, Progress{Stage: StageManifest})
	plan, err := planner.ComputePlan(packages, nil, &version, version)
	if err != nil {
		return nil, err
	}

	manifest, dirs := replay(plan.Packages)

	paths := make([]string, 0, len(manifest))
	var totalBytes uint64
	for path, entry := range manifest {
		paths = append(paths, path)
		totalBytes += entry.finalSize
	}
	sort.Strings(paths)

	rep := &Report{Version: version}

	for dir := range dirs {
		fi, err := os.Stat(filepath.Join(ws.Dir(), dir))
		if err != nil || !fi.IsDir() {
			rep.Failures = append(rep.Failures, dir)
		}
	}

	var checked uint64
	for _, path := range paths {
		entry := manifest[path]
		report(progress, Progress{Stage: StageHashing, CheckedBytes: checked, TotalBytes: totalBytes, CurrentPath: path})

		hash, size, err := hashFile(filepath.Join(ws.Dir(), path))
		if err != nil || size != entry.finalSize || hash != entry.finalHash {
			rep.Failures = append(rep.Failures, path)
		}
		checked += entry.finalSize
	}

	return rep, nil
}

func report(fn func(Progress), p Progress) {
	if fn != nil {
		fn(p)
	}
}

// replay reconstructs the manifest (file -> expected state) and the set
// of declared directories by walking every package's operations in
// order, the same forward-accumulation swupd uses when folding a chain
// of manifests into one full-file-list view.
func replay(packages []*model.PackageMetadata) (map[string]manifestEntry, map[string]bool) {
	manifest := make(map[string]manifestEntry)
	dirs := make(map[string]bool)
	for _, pkg := range packages {
		for _, op := range pkg.Operations {
			switch op.Kind {
			case model.OpMkDir:
				dirs[op.Path] = true
			case model.OpRmDir:
				delete(dirs, op.Path)
			case model.OpAdd, model.OpPatch:
				manifest[op.Path] = manifestEntry{mode: op.Mode, finalHash: op.FinalHash, finalSize: op.FinalSize}
			case model.OpRm:
				delete(manifest, op.Path)
			case model.OpCheck:
				// Check carries no state transition.
			}
		}
	}
	return manifest, dirs
}

func hashFile(path string) (model.Hash, uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Hash{}, 0, err
	}
	defer func() { _ = f.Close() }()

	h := model.NewHasher()
	n, err := io.Copy(h, f)
	if err != nil {
		return model.Hash{}, 0, err
	}
	return h.Sum(), uint64(n), nil
}
