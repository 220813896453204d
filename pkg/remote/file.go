package remote

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// FileRepository is a RemoteRepository backed by direct reads of a
// repository directory on the local filesystem, the !isRemote branch of
// internal/client.State generalized to ranged reads.
type FileRepository struct {
	dir string
}

// NewFileRepository returns a FileRepository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

func (f *FileRepository) path(elem ...string) string {
	return filepath.Join(append([]string{f.dir}, elem...)...)
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.NewError(model.KindIoError, "reading %s", path).WithPath(path).WithCause(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewError(model.KindSchemaError, "parsing %s", path).WithPath(path).WithCause(err)
	}
	return nil
}

// CurrentVersion implements RemoteRepository.
func (f *FileRepository) CurrentVersion() (model.CleanName, error) {
	var cur model.Current
	path := f.path("current")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", model.NewError(model.KindNotFound, "repository has no current version").WithPath(path)
	}
	if err := readJSONFile(path, &cur); err != nil {
		return "", err
	}
	return cur.Version, nil
}

// Versions implements RemoteRepository.
func (f *FileRepository) Versions() ([]*model.Version, error) {
	var versions []*model.Version
	if err := readJSONFile(f.path("versions"), &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// Packages implements RemoteRepository.
func (f *FileRepository) Packages() ([]*model.PackageMetadata, error) {
	var packages []*model.PackageMetadata
	if err := readJSONFile(f.path("packages.json"), &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// Fetch implements RemoteRepository by opening the package data blob
// and seeking to rng.Start, returning a reader limited to rng.Len()
// that fails with IoError if the blob ends before rng.End.
func (f *FileRepository) Fetch(packageDataName model.CleanName, rng model.ByteRange) (io.ReadCloser, error) {
	path := f.path("packages", string(packageDataName))
	file, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.KindNotFound, "package data %s not found", path).WithPath(path).WithCause(err)
	}
	if rng.Start > 0 {
		if _, err := file.Seek(int64(rng.Start), io.SeekStart); err != nil {
			_ = file.Close()
			return nil, model.NewError(model.KindIoError, "seeking in %s", path).WithPath(path).WithCause(err)
		}
	}
	limited := &limitedReadCloser{r: io.LimitReader(file, int64(rng.Len())), c: file}
	return &verifiedBody{body: limited, want: int64(rng.Len()), path: path}, nil
}

// limitedReadCloser pairs a size-limited Reader view with the
// underlying file's Close, since io.LimitReader alone drops Close.
type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }
