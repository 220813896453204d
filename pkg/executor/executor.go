// Package executor drives a planner.Plan through a workspace: for each
// package in turn it opens a single ranged fetch, decodes and applies
// every operation in order, and persists the workspace's New/Stable/
// Corrupted/Updating transitions as it goes. Grounded on
// swupd/packs.go's producer/consumer pipeline and
// internal/client/state.go's GetFile/download pair, orchestrated with
// golang.org/x/sync/errgroup the way pkg/builder orchestrates its
// encoding workers.
package executor

import (
	"context"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/integrity"
	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/planner"
	"github.com/clearlinux/speedupdate/pkg/remote"
	"github.com/clearlinux/speedupdate/pkg/workspace"
)

// Update drives plan to completion against ws, fetching package data
// from repo. Returns nil once every package has been applied and the
// terminal state is written: Stable, or Corrupted when Check operations
// (or the optional Options.Check pass) recorded failures. A non-nil
// error leaves the workspace in its last persisted state, which is
// Updating once the prologue has written it, so a later Update resumes.
func Update(ctx context.Context, ws *workspace.Workspace, repo remote.RemoteRepository, plan *planner.Plan, opts Options, progress *Progress) error {
	if progress == nil {
		progress = NewProgress()
	}

	if plan.UpToDate() {
		log.Debug(log.Executor, "workspace %s already at %s", ws.Dir(), plan.Goal)
		return nil
	}

	log.Info(log.Executor, "updating %s to %s via %d package(s)", ws.Dir(), plan.Goal, len(plan.Packages))

	lock, err := ws.Lock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	progress.Set(UpdateState{Stage: StagePrologue})

	names := make([]model.CleanName, len(plan.Packages))
	for i, pkg := range plan.Packages {
		names[i] = pkg.PackageDataName
	}

	completed, err := resumeCompleted(ws, plan.Goal, names)
	if err != nil {
		return err
	}

	totalDownload, totalApplyIn, totalApplyOut, totalCheck := aggregate(plan.Packages)
	progress.Update(func(s *UpdateState) {
		s.TotalDownloadBytes = totalDownload
		s.TotalApplyInputBytes = totalApplyIn
		s.TotalApplyOutputBytes = totalApplyOut
		s.TotalCheckBytes = totalCheck
	})

	if err := ws.SetState(model.UpdatingState(plan.From, plan.Goal, names, completed)); err != nil {
		return err
	}

	alreadyDone := make(map[model.CleanName]bool, len(completed))
	for _, c := range completed {
		alreadyDone[c] = true
	}

	for _, pkg := range plan.Packages {
		if alreadyDone[pkg.PackageDataName] {
			continue
		}

		progress.Update(func(s *UpdateState) {
			s.CurrentPackage = string(pkg.PackageDataName)
		})

		if err := applyOnePackage(ctx, ws, repo, pkg, progress); err != nil {
			return err
		}
		log.Debug(log.Executor, "applied package %s", pkg.PackageDataName)

		completed = append(completed, pkg.PackageDataName)
		if err := ws.SetState(model.UpdatingState(plan.From, plan.Goal, names, completed)); err != nil {
			return err
		}
	}

	var failures []string
	progress.Update(func(s *UpdateState) {
		s.Stage = StageCommit
		failures = append(failures, s.Failures...)
	})

	if opts.Check {
		report, err := integrity.CheckVersion(ws, repo, plan.Goal, nil)
		if err != nil {
			return err
		}
		failures = append(failures, report.Failures...)
	}

	if len(failures) > 0 {
		log.Warning(log.Executor, "update to %s completed with %d failure(s)", plan.Goal, len(failures))
		return ws.SetState(model.CorruptedState(plan.Goal, failures))
	}
	log.Info(log.Executor, "workspace %s is now stable at %s", ws.Dir(), plan.Goal)
	return ws.SetState(model.StableState(plan.Goal))
}

// resumeCompleted returns the packages already applied from an
// in-progress Updating state targeting the same goal, or an empty slice
// for a fresh update (spec.md §4.F's resume semantics).
func resumeCompleted(ws *workspace.Workspace, goal model.CleanName, names []model.CleanName) ([]model.CleanName, error) {
	state, err := ws.State()
	if err != nil {
		return nil, err
	}
	if state.Kind != model.StateUpdating || state.To != goal {
		return nil, nil
	}
	var completed []model.CleanName
	for _, n := range names {
		if state.IsCompleted(n) {
			completed = append(completed, n)
		}
	}
	return completed, nil
}

func aggregate(packages []*model.PackageMetadata) (download, applyIn, applyOut, check uint64) {
	for _, pkg := range packages {
		download += pkg.Size
		for _, op := range pkg.Operations {
			switch op.Kind {
			case model.OpAdd, model.OpPatch:
				applyIn += op.DataRange.Len()
				applyOut += op.FinalSize
			case model.OpCheck:
				check += op.FinalSize
			}
		}
	}
	return
}

func applyOnePackage(ctx context.Context, ws *workspace.Workspace, repo remote.RemoteRepository, pkg *model.PackageMetadata, progress *Progress) error {
	r, err := repo.Fetch(pkg.PackageDataName, model.ByteRange{Start: 0, End: pkg.Size})
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	return applyPackage(ctx, ws.Dir(), pkg.Operations, r, progress)
}
