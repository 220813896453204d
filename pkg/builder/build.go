package builder

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// BuildError wraps the first fatal per-file error encountered while
// building a package, naming the path that failed, the same
// "structured error naming the path" shape model.Error already gives
// every other component.
type BuildError struct {
	Path  string
	Cause error
}

func (e *BuildError) Error() string {
	return "build failed for " + e.Path + ": " + e.Cause.Error()
}

func (e *BuildError) Unwrap() error { return e.Cause }

// Build runs the three-stage pipeline (BuildingTaskList,
// BuildingOperations, BuildingPackage) and writes <buildDir>/<pkg> plus
// <buildDir>/<pkg>.metadata, returning the resulting PackageMetadata.
//
// previousDir and previousVersion are both empty/nil for a complete
// package; both set for a patch package from previousVersion to to.
func Build(sourceDir, previousDir string, previousVersion *model.CleanName, buildDir string, to model.CleanName, opts Options, progress *Progress) (*model.PackageMetadata, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := to.Check(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return nil, model.NewError(model.KindIoError, "creating build directory %s", buildDir).WithPath(buildDir).WithCause(err)
	}
	if progress == nil {
		progress = NewProgress(opts.NumThreads)
	}

	log.Debug(log.Builder, "building package to %s (%d threads)", to, opts.NumThreads)

	progress.SetStage(StageBuildingTaskList)
	rawTasks, err := buildTaskList(sourceDir, previousDir)
	if err != nil {
		return nil, err
	}
	ordered := orderTasks(rawTasks)

	progress.SetStage(StageBuildingOperations)
	results := make([]*encoded, len(ordered))

	group, ctx := errgroup.WithContext(context.Background())
	group.SetLimit(opts.NumThreads)

	for i, t := range ordered {
		i, t := i, t
		if !t.op.HasData() {
			continue
		}
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			workerIdx := i % len(progress.Workers)
			progress.UpdateWorker(workerIdx, WorkerProgress{TaskName: t.op.Path})
			enc, err := encodeCandidate(t, opts, buildDir, progress, workerIdx)
			if err != nil {
				return &BuildError{Path: t.op.Path, Cause: err}
			}
			results[i] = enc
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		for _, r := range results {
			if r != nil {
				_ = os.Remove(r.path)
			}
		}
		return nil, err
	}

	progress.SetStage(StageBuildingPackage)
	meta, err := assemble(ordered, results, buildDir, previousVersion, to)
	if err != nil {
		return nil, err
	}
	log.Info(log.Builder, "built %s (%d bytes, %d operations)", meta.PackageDataName, meta.Size, len(meta.Operations))
	return meta, nil
}

// assemble implements stage BuildingPackage: concatenate the winning
// per-operation encodings in task order into <buildDir>/<pkg>, tracking
// each operation's resolved data_range against the running offset and
// a running SHA-256 over the whole concatenation.
func assemble(ordered []*task, results []*encoded, buildDir string, from *model.CleanName, to model.CleanName) (*model.PackageMetadata, error) {
	packageDataName := model.FileName(from, to)
	dataPath := filepath.Join(buildDir, string(packageDataName))

	out, err := os.Create(dataPath)
	if err != nil {
		return nil, model.NewError(model.KindIoError, "creating package data file %s", dataPath).WithPath(dataPath).WithCause(err)
	}
	defer func() { _ = out.Close() }()

	hasher := model.NewHasher()
	var offset uint64
	operations := make([]*model.Operation, len(ordered))

	for i, t := range ordered {
		op := t.op
		if enc := results[i]; enc != nil {
			f, err := os.Open(enc.path)
			if err != nil {
				return nil, model.NewError(model.KindIoError, "opening encoded candidate for %s", op.Path).WithPath(op.Path).WithCause(err)
			}
			n, err := io.Copy(io.MultiWriter(out, hasher), f)
			_ = f.Close()
			_ = os.Remove(enc.path)
			if err != nil {
				return nil, model.NewError(model.KindIoError, "assembling package data for %s", op.Path).WithPath(op.Path).WithCause(err)
			}
			op.DataRange = model.ByteRange{Start: offset, End: offset + uint64(n)}
			op.DataCodec = enc.dataCodec
			op.Patcher = enc.patcher
			offset += uint64(n)
		}
		if err := op.Validate(); err != nil {
			return nil, err
		}
		operations[i] = op
	}

	if err := out.Close(); err != nil {
		return nil, model.NewError(model.KindIoError, "closing package data file %s", dataPath).WithPath(dataPath).WithCause(err)
	}

	meta := &model.PackageMetadata{
		PackageDataName: packageDataName,
		From:            from,
		To:              to,
		Size:            offset,
		Operations:      operations,
		Hash:            hasher.Sum(),
	}

	metadataPath := filepath.Join(buildDir, string(packageDataName)+".metadata")
	if err := writeMetadata(metadataPath, meta); err != nil {
		return nil, err
	}
	return meta, nil
}
