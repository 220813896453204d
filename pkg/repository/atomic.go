// Package repository implements the on-disk repository store: the
// append-only versions/packages index plus the current-version pointer,
// all living directly under a repository directory.
package repository

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// writeFileAtomic writes data to a temp file in the same directory as
// path and renames it into place, the temp-then-rename idiom used by
// config.MixConfig.SaveConfig and internal/client.Download throughout
// the teacher's tree.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return model.NewError(model.KindIoError, "creating temp file for %s", path).WithPath(path).WithCause(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.NewError(model.KindIoError, "writing %s", path).WithPath(path).WithCause(err)
	}
	if err = tmp.Close(); err != nil {
		return model.NewError(model.KindIoError, "closing temp file for %s", path).WithPath(path).WithCause(err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return model.NewError(model.KindIoError, "setting mode on %s", path).WithPath(path).WithCause(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return model.NewError(model.KindIoError, "renaming into %s", path).WithPath(path).WithCause(err)
	}
	return nil
}

// writeJSONAtomic marshals v as indented JSON and writes it via
// writeFileAtomic.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.NewError(model.KindSchemaError, "encoding %s", path).WithPath(path).WithCause(err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data, 0644)
}

// readJSON unmarshals the file at path into v. Callers distinguish a
// missing file via os.IsNotExist on the returned error's cause.
func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return model.NewError(model.KindSchemaError, "parsing %s", path).WithPath(path).WithCause(err)
	}
	return nil
}
