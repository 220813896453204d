package builder

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// writeMetadata writes meta's v1 on-disk form to path via temp+rename,
// the same atomicity idiom pkg/repository's index writers use.
func writeMetadata(path string, meta *model.PackageMetadata) (err error) {
	data, err := json.MarshalIndent(meta.ToFile(), "", "  ")
	if err != nil {
		return model.NewError(model.KindSchemaError, "encoding package metadata %s", path).WithPath(path).WithCause(err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return model.NewError(model.KindIoError, "creating temp metadata file").WithPath(path).WithCause(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.NewError(model.KindIoError, "writing package metadata %s", path).WithPath(path).WithCause(err)
	}
	if err = tmp.Close(); err != nil {
		return model.NewError(model.KindIoError, "closing package metadata %s", path).WithPath(path).WithCause(err)
	}
	return os.Rename(tmpName, path)
}
