package executor

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/codec"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// segment is one operation's raw (still-compressed) package-data bytes,
// in package order. Non-data operations (MkDir/RmDir/Rm/Check) carry a
// nil raw and flow through the same channel to preserve ordering.
type segment struct {
	idx int
	op  *model.Operation
	raw []byte
}

// decoded is one operation's fully-decoded output, ready to apply.
// resumed marks a Patch whose on-disk file already carries FinalHash -
// a crash between a prior run's rename and its Completed-package write
// - so apply must skip it rather than re-running the patch against
// already-patched bytes.
type decoded struct {
	idx     int
	op      *model.Operation
	data    []byte
	resumed bool
}

// applyPackage runs the three-stage download/decode/apply pipeline for
// one package's operations, grounded on swupd/packs.go's producer/
// consumer tar pipeline, generalized from a single tar.Writer consumer
// to three independently-cancellable stages joined by bounded channels
// (capacity 4, per spec.md's explicit backpressure bound).
func applyPackage(ctx context.Context, wsDir string, ops []*model.Operation, data io.Reader, progress *Progress) error {
	g, ctx := errgroup.WithContext(ctx)

	segments := make(chan segment, 4)
	decodedCh := make(chan decoded, 4)

	g.Go(func() error {
		defer close(segments)
		return download(ctx, ops, data, segments, progress)
	})

	g.Go(func() error {
		defer close(decodedCh)
		return decode(ctx, wsDir, segments, decodedCh, progress)
	})

	g.Go(func() error {
		return apply(ctx, wsDir, decodedCh, progress)
	})

	return g.Wait()
}

func download(ctx context.Context, ops []*model.Operation, r io.Reader, out chan<- segment, progress *Progress) error {
	for idx, op := range ops {
		var raw []byte
		if op.HasData() {
			raw = make([]byte, op.DataRange.Len())
			if _, err := io.ReadFull(r, raw); err != nil {
				return model.NewError(model.KindIoError, "downloading operation %d (%s)", idx, op.Path).WithPath(op.Path).WithCause(err)
			}
		}
		progress.Update(func(s *UpdateState) {
			s.Stage = StageStreaming
			s.DownloadedBytes += uint64(len(raw))
			s.CurrentOpIndex = idx
		})
		select {
		case out <- segment{idx: idx, op: op, raw: raw}:
		case <-ctx.Done():
			return model.NewError(model.KindCancelled, "update cancelled during download").WithCause(ctx.Err())
		}
	}
	return nil
}

func decode(ctx context.Context, wsDir string, in <-chan segment, out chan<- decoded, progress *Progress) error {
	for seg := range in {
		var data []byte
		var resumed bool
		if seg.op.HasData() {
			var err error
			data, resumed, err = decodeOperation(wsDir, seg.op, seg.raw)
			if err != nil {
				return err
			}
			progress.Update(func(s *UpdateState) {
				s.AppliedInputBytes += uint64(len(seg.raw))
			})
		}
		select {
		case out <- decoded{idx: seg.idx, op: seg.op, data: data, resumed: resumed}:
		case <-ctx.Done():
			return model.NewError(model.KindCancelled, "update cancelled during decode").WithCause(ctx.Err())
		}
	}
	return nil
}

// decodeOperation undoes the builder's two-stage encoding: Add's raw
// bytes are a straight data_codec stream, while Patch's raw bytes are a
// data_codec stream of the *delta*, which must then be replayed by the
// named patcher against the file currently on disk.
//
// A Patch's source file is only safe to replay against when it is still
// in the pre-patch state the delta was built from (op.LocalHash/
// LocalSize). If a prior run was killed after staging this same patch
// but before the package was recorded as Completed, the file on disk is
// already at op.FinalHash/FinalSize; resuming must recognize that and
// skip the patch rather than replay a delta against already-patched
// bytes, which decodes to garbage and fails the final hash check on
// every retry. Any other on-disk state is a genuine inconsistency.
func decodeOperation(wsDir string, op *model.Operation, raw []byte) ([]byte, bool, error) {
	if op.Kind == model.OpPatch {
		sourcePath := filepath.Join(wsDir, op.Path)
		hash, size, statErr := hashFile(sourcePath)
		switch {
		case statErr == nil && hash == op.FinalHash && size == op.FinalSize:
			log.Debug(log.Executor, "skipping already-patched %q on resume", op.Path)
			return nil, true, nil
		case statErr != nil || hash != op.LocalHash || size != op.LocalSize:
			return nil, false, model.NewError(model.KindIntegrityMismatch, "source for patch %q is neither in the expected pre-patch nor post-patch state (resume from an inconsistent workspace?)", op.Path).WithPath(op.Path)
		}
	}

	dec, err := codec.NewDecoder(op.DataCodec, bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}

	var out io.Reader = dec
	if op.Kind == model.OpPatch {
		sourcePath := filepath.Join(wsDir, op.Path)
		patched, err := codec.NewPatchDecoder(op.Patcher, dec, sourcePath)
		if err != nil {
			return nil, false, err
		}
		out = patched
	}

	data, err := io.ReadAll(out)
	if err != nil {
		return nil, false, model.NewError(model.KindCodecError, "decoding operation for %q", op.Path).WithPath(op.Path).WithCodec(op.DataCodec).WithCause(err)
	}
	return data, false, nil
}

func apply(ctx context.Context, wsDir string, in <-chan decoded, progress *Progress) error {
	for dec := range in {
		select {
		case <-ctx.Done():
			return model.NewError(model.KindCancelled, "update cancelled during apply").WithCause(ctx.Err())
		default:
		}

		if dec.resumed {
			progress.Update(func(s *UpdateState) {
				s.AppliedOutputBytes += dec.op.FinalSize
			})
			continue
		}

		if err := applyOperation(wsDir, dec.op, dec.data, progress); err != nil {
			return err
		}
	}
	return nil
}

func applyOperation(wsDir string, op *model.Operation, data []byte, progress *Progress) error {
	path := filepath.Join(wsDir, op.Path)

	switch op.Kind {
	case model.OpMkDir:
		if err := os.MkdirAll(path, os.FileMode(defaultMode(op.Mode))); err != nil {
			return model.NewError(model.KindIoError, "creating directory %q", op.Path).WithPath(op.Path).WithCause(err)
		}
		return nil

	case model.OpRmDir:
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return model.NewError(model.KindIoError, "removing directory %q", op.Path).WithPath(op.Path).WithCause(err)
		}
		return nil

	case model.OpRm:
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return model.NewError(model.KindIoError, "removing %q", op.Path).WithPath(op.Path).WithCause(err)
		}
		return nil

	case model.OpCheck:
		hash, size, err := hashFile(path)
		mismatch := err != nil || size != op.FinalSize || hash != op.FinalHash
		progress.Update(func(s *UpdateState) {
			s.CheckedBytes += op.FinalSize
			if mismatch {
				s.Failures = append(s.Failures, op.Path)
			}
		})
		return nil

	case model.OpAdd, model.OpPatch:
		return stageAndCommit(wsDir, op, data, progress)

	default:
		return model.NewError(model.KindSchemaError, "cannot apply operation with unknown kind for %q", op.Path).WithPath(op.Path)
	}
}

func defaultMode(mode uint32) uint32 {
	if mode == 0 {
		return 0755
	}
	return mode
}

// stageAndCommit writes data to <path>.part with a rolling hash, then
// atomically renames it over the target on a full match — the same
// staged-write-then-rename idiom pkg/repository and pkg/workspace use
// for their index files, applied here to file content instead of JSON.
func stageAndCommit(wsDir string, op *model.Operation, data []byte, progress *Progress) error {
	path := filepath.Join(wsDir, op.Path)
	partPath := path + ".part"

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return model.NewError(model.KindIoError, "creating parent directory for %q", op.Path).WithPath(op.Path).WithCause(err)
	}

	mode := os.FileMode(op.Mode)
	if mode == 0 {
		mode = 0644
	}

	f, err := os.OpenFile(partPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return model.NewError(model.KindIoError, "staging %q", op.Path).WithPath(op.Path).WithCause(err)
	}

	hasher := model.NewHasher()
	if _, err := io.Copy(io.MultiWriter(f, hasher), bytes.NewReader(data)); err != nil {
		_ = f.Close()
		_ = os.Remove(partPath)
		return model.NewError(model.KindIoError, "writing staged %q", op.Path).WithPath(op.Path).WithCause(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(partPath)
		return model.NewError(model.KindIoError, "closing staged %q", op.Path).WithPath(op.Path).WithCause(err)
	}

	gotHash := hasher.Sum()
	gotSize := uint64(len(data))
	if gotHash != op.FinalHash || gotSize != op.FinalSize {
		_ = os.Remove(partPath)
		return model.NewError(model.KindIntegrityMismatch, "content mismatch applying %q", op.Path).WithPath(op.Path)
	}

	if err := os.Chmod(partPath, mode); err != nil {
		_ = os.Remove(partPath)
		return model.NewError(model.KindIoError, "setting mode on %q", op.Path).WithPath(op.Path).WithCause(err)
	}
	if err := os.Rename(partPath, path); err != nil {
		_ = os.Remove(partPath)
		return model.NewError(model.KindIoError, "committing %q", op.Path).WithPath(op.Path).WithCause(err)
	}

	progress.Update(func(s *UpdateState) {
		s.AppliedOutputBytes += gotSize
	})
	return nil
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
