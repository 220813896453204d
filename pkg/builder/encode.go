package builder

import (
	"io"
	"os"

	"github.com/clearlinux/speedupdate/pkg/codec"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// encoded is the result of trying every candidate codec (and, for
// patches, every candidate patcher first) and keeping the shortest,
// the generalization of swupd.createRegularFullfile's
// fullfileCompressors trial loop from a fixed 3-entry table to the
// full pkg/codec registry.
type encoded struct {
	path      string // temp file holding the final encoded bytes
	dataCodec string
	patcher   string
	size      uint64
}

// encodeCandidate runs the codec/patcher trial for one Add or Patch
// task, writing the winning encoding to a fresh temp file under
// workDir and reporting bytes processed into progress as it goes.
func encodeCandidate(t *task, opts Options, workDir string, progress *Progress, workerIdx int) (*encoded, error) {
	switch t.op.Kind {
	case model.OpAdd:
		return encodeAdd(t.sourcePath, opts.Compressors, workDir)
	case model.OpPatch:
		return encodePatch(t, opts, workDir, progress, workerIdx)
	default:
		return nil, nil
	}
}

// encodeAdd tries "raw" plus every compressor in compressors against
// the bytes of path, keeping the smallest output.
func encodeAdd(path string, compressors []string, workDir string) (*encoded, error) {
	return tryCompressors(path, append([]string{"raw"}, compressors...), workDir)
}

// encodePatch first picks the smallest raw delta across every
// candidate patcher (vcdiff today), then runs the same compressor
// trial on that delta's bytes - the patcher transforms the file, the
// data_codec then compresses the transform, exactly as spec.md's
// Operation separates Patcher from DataCodec.
func encodePatch(t *task, opts Options, workDir string, progress *Progress, workerIdx int) (*encoded, error) {
	var bestPatcher, bestDeltaPath string
	var bestSize int64 = -1

	for _, spec := range opts.Patchers {
		deltaPath, size, err := tryPatcher(spec, t.previousPath, t.sourcePath, workDir)
		if err != nil {
			continue
		}
		if bestSize < 0 || size < bestSize {
			if bestDeltaPath != "" {
				_ = os.Remove(bestDeltaPath)
			}
			codecOpts, _ := codec.ParseOptions(spec)
			bestPatcher = codecOpts.Name
			bestDeltaPath = deltaPath
			bestSize = size
		} else {
			_ = os.Remove(deltaPath)
		}
	}

	if bestDeltaPath == "" {
		// No patcher could produce a delta (e.g. binary too dissimilar);
		// fall back to a full Add of the target file so the build still
		// succeeds, converting the task's Kind in place.
		t.op.Kind = model.OpAdd
		t.op.LocalHash = model.Hash{}
		t.op.LocalSize = 0
		t.op.Patcher = ""
		return encodeAdd(t.sourcePath, opts.Compressors, workDir)
	}
	defer func() { _ = os.Remove(bestDeltaPath) }()

	if progress != nil {
		progress.UpdateWorker(workerIdx, WorkerProgress{TaskName: t.op.Path, ProcessedBytes: uint64(bestSize), ProcessBytes: uint64(bestSize)})
	}

	enc, err := tryCompressors(bestDeltaPath, append([]string{"raw"}, opts.Compressors...), workDir)
	if err != nil {
		return nil, err
	}
	enc.patcher = bestPatcher
	t.op.Patcher = bestPatcher
	return enc, nil
}

// tryPatcher runs one patcher, writing its delta to a temp file under
// workDir, and reports the raw (uncompressed) delta size.
func tryPatcher(spec, previousPath, targetPath, workDir string) (string, int64, error) {
	out, err := os.CreateTemp(workDir, ".delta-")
	if err != nil {
		return "", 0, model.NewError(model.KindIoError, "creating temp delta file").WithCause(err)
	}
	defer func() { _ = out.Close() }()

	if err := codec.EncodePatch(spec, out, previousPath, targetPath); err != nil {
		_ = os.Remove(out.Name())
		return "", 0, err
	}
	fi, err := out.Stat()
	if err != nil {
		_ = os.Remove(out.Name())
		return "", 0, model.NewError(model.KindIoError, "statting delta file").WithCause(err)
	}
	return out.Name(), fi.Size(), nil
}

// tryCompressors runs every candidate in specs against the bytes of
// srcPath, each into its own temp file, and returns the smallest
// result after removing the losing candidates.
func tryCompressors(srcPath string, specs []string, workDir string) (*encoded, error) {
	var best *encoded

	for _, spec := range specs {
		opts, err := codec.ParseOptions(spec)
		if err != nil {
			return nil, err
		}

		src, err := os.Open(srcPath)
		if err != nil {
			return nil, model.NewError(model.KindIoError, "opening %s", srcPath).WithPath(srcPath).WithCause(err)
		}
		if minSize, ok := codec.MinSize(opts); ok {
			fi, statErr := src.Stat()
			if statErr == nil && uint64(fi.Size()) < minSize {
				_ = src.Close()
				continue
			}
		}

		out, err := os.CreateTemp(workDir, ".candidate-")
		if err != nil {
			_ = src.Close()
			return nil, model.NewError(model.KindIoError, "creating temp candidate file").WithCause(err)
		}

		enc, err := codec.NewEncoder(out, opts)
		if err != nil {
			_ = src.Close()
			_ = out.Close()
			_ = os.Remove(out.Name())
			continue
		}
		if _, err := io.Copy(enc, src); err != nil {
			_ = src.Close()
			_ = out.Close()
			_ = os.Remove(out.Name())
			continue
		}
		_ = src.Close()
		if err := enc.Finish(); err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
			continue
		}

		fi, err := out.Stat()
		_ = out.Close()
		if err != nil {
			_ = os.Remove(out.Name())
			continue
		}

		if best == nil || uint64(fi.Size()) < best.size {
			if best != nil {
				_ = os.Remove(best.path)
			}
			best = &encoded{path: out.Name(), dataCodec: opts.Name, size: uint64(fi.Size())}
		} else {
			_ = os.Remove(out.Name())
		}
	}

	if best == nil {
		return nil, model.NewError(model.KindCodecError, "no candidate codec could encode %s", srcPath).WithPath(srcPath)
	}
	return best, nil
}
