package builder

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// task is one pending operation discovered by the tree walk, carrying
// whatever on-disk paths its encoding stage needs in addition to the
// model.Operation it will eventually become.
type task struct {
	op *model.Operation

	// sourcePath is the target-version file backing an Add/Patch.
	sourcePath string
	// previousPath is the previous-version file backing a Patch.
	previousPath string
}

type walkedFile struct {
	relPath string
	info    fs.FileInfo
}

// walkTree lists every file and directory under root, relative to
// root, the same filepath.Walk-driven collection swupd.addFilesFromChroot
// performs for a manifest's chroot tree.
func walkTree(root string) (map[string]walkedFile, error) {
	files := make(map[string]walkedFile)
	if root == "" {
		return files, nil
	}
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		files[filepath.ToSlash(rel)] = walkedFile{relPath: filepath.ToSlash(rel), info: fi}
		return nil
	})
	if err != nil {
		return nil, model.NewError(model.KindIoError, "walking tree %s", root).WithPath(root).WithCause(err)
	}
	return files, nil
}

// buildTaskList implements stage BuildingTaskList: walk sourceDir and
// (if present) previousDir, and produce the per-path decision the core
// design describes - new path is Add, identical bytes is Check,
// differing bytes is Patch, previous-only is Rm, and directory
// differences become MkDir/RmDir.
func buildTaskList(sourceDir, previousDir string) ([]*task, error) {
	sourceFiles, err := walkTree(sourceDir)
	if err != nil {
		return nil, err
	}
	previousFiles, err := walkTree(previousDir)
	if err != nil {
		return nil, err
	}

	var tasks []*task
	for rel, sf := range sourceFiles {
		pf, existedBefore := previousFiles[rel]
		abs := filepath.Join(sourceDir, filepath.FromSlash(rel))

		if sf.info.IsDir() {
			if !existedBefore || !pf.info.IsDir() {
				tasks = append(tasks, &task{op: &model.Operation{Kind: model.OpMkDir, Path: rel, Mode: uint32(sf.info.Mode().Perm())}})
			}
			continue
		}

		finalHash, err := hashFile(abs)
		if err != nil {
			return nil, err
		}
		finalSize := uint64(sf.info.Size())

		if !existedBefore || pf.info.IsDir() {
			tasks = append(tasks, &task{
				op:         &model.Operation{Kind: model.OpAdd, Path: rel, Mode: uint32(sf.info.Mode().Perm()), FinalHash: finalHash, FinalSize: finalSize},
				sourcePath: abs,
			})
			continue
		}

		prevAbs := filepath.Join(previousDir, filepath.FromSlash(rel))
		prevHash, err := hashFile(prevAbs)
		if err != nil {
			return nil, err
		}
		if prevHash == finalHash && uint64(pf.info.Size()) == finalSize {
			tasks = append(tasks, &task{op: &model.Operation{Kind: model.OpCheck, Path: rel, Mode: uint32(sf.info.Mode().Perm()), FinalHash: finalHash, FinalSize: finalSize}})
			continue
		}

		tasks = append(tasks, &task{
			op: &model.Operation{
				Kind: model.OpPatch, Path: rel, Mode: uint32(sf.info.Mode().Perm()),
				FinalHash: finalHash, FinalSize: finalSize,
				LocalHash: prevHash, LocalSize: uint64(pf.info.Size()),
			},
			sourcePath:   abs,
			previousPath: prevAbs,
		})
	}

	for rel, pf := range previousFiles {
		if _, stillPresent := sourceFiles[rel]; stillPresent {
			continue
		}
		if pf.info.IsDir() {
			tasks = append(tasks, &task{op: &model.Operation{Kind: model.OpRmDir, Path: rel}})
		} else {
			tasks = append(tasks, &task{op: &model.Operation{Kind: model.OpRm, Path: rel}})
		}
	}

	return tasks, nil
}

// orderTasks sorts tasks into the apply order the workspace executor
// expects: directory creates parent-before-child, then file mutations
// in path order, then file removes, then directory removes
// child-before-parent - so a MkDir always precedes an Add inside it,
// and a RmDir always follows the Rm of everything it used to contain.
func orderTasks(tasks []*task) []*task {
	var mkdirs, files, rms, rmdirs []*task
	for _, t := range tasks {
		switch t.op.Kind {
		case model.OpMkDir:
			mkdirs = append(mkdirs, t)
		case model.OpRmDir:
			rmdirs = append(rmdirs, t)
		case model.OpRm:
			rms = append(rms, t)
		default:
			files = append(files, t)
		}
	}

	depth := func(p string) int { return strings.Count(p, "/") }
	sort.SliceStable(mkdirs, func(i, j int) bool {
		di, dj := depth(mkdirs[i].op.Path), depth(mkdirs[j].op.Path)
		if di != dj {
			return di < dj
		}
		return mkdirs[i].op.Path < mkdirs[j].op.Path
	})
	sort.SliceStable(files, func(i, j int) bool { return files[i].op.Path < files[j].op.Path })
	sort.SliceStable(rms, func(i, j int) bool { return rms[i].op.Path < rms[j].op.Path })
	sort.SliceStable(rmdirs, func(i, j int) bool {
		di, dj := depth(rmdirs[i].op.Path), depth(rmdirs[j].op.Path)
		if di != dj {
			return di > dj
		}
		return rmdirs[i].op.Path > rmdirs[j].op.Path
	})

	ordered := make([]*task, 0, len(tasks))
	ordered = append(ordered, mkdirs...)
	ordered = append(ordered, files...)
	ordered = append(ordered, rms...)
	ordered = append(ordered, rmdirs...)
	return ordered
}

func hashFile(path string) (model.Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Hash{}, model.NewError(model.KindIoError, "opening %s", path).WithPath(path).WithCause(err)
	}
	defer func() { _ = f.Close() }()

	h := model.NewHasher()
	if _, err := io.Copy(h, f); err != nil {
		return model.Hash{}, model.NewError(model.KindIoError, "hashing %s", path).WithPath(path).WithCause(err)
	}
	return h.Sum(), nil
}
