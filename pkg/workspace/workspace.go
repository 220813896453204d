// Package workspace implements the workspace state machine: the
// persisted New/Stable/Corrupted/Updating state at <ws>/.update, with
// an advisory lock guarding update and check operations.
package workspace

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/model"
)

const (
	stateFileName = ".update"
	lockFileName  = ".update.lock"
)

// Workspace is a local tree mirroring some repository revision, whose
// state is tracked in <ws>/.update. Grounded on internal/client.State's
// "one cache directory rooted at stateDir" shape, generalized from a
// single content-string check to the full New/Stable/Corrupted/Updating
// transition set.
type Workspace struct {
	dir string
}

// Open returns a Workspace handle for dir, creating dir and its New
// state file if they don't exist yet, mirroring internal/client.NewState's
// directory bootstrap.
func Open(dir string) (*Workspace, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, model.NewError(model.KindIoError, "creating workspace directory %s", dir).WithPath(dir).WithCause(err)
	}
	ws := &Workspace{dir: dir}

	statePath := ws.path(stateFileName)
	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		if err := ws.writeState(model.NewWorkspaceState()); err != nil {
			return nil, err
		}
		log.Debug(log.Workspace, "bootstrapped new workspace at %s", dir)
	} else if err != nil {
		return nil, model.NewError(model.KindIoError, "accessing workspace state %s", statePath).WithPath(statePath).WithCause(err)
	}
	return ws, nil
}

// Dir returns the workspace's root directory.
func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) path(elem ...string) string {
	return filepath.Join(append([]string{w.dir}, elem...)...)
}

// State reads the current persisted workspace state.
func (w *Workspace) State() (*model.WorkspaceState, error) {
	data, err := os.ReadFile(w.path(stateFileName))
	if err != nil {
		return nil, model.NewError(model.KindIoError, "reading workspace state").WithPath(w.path(stateFileName)).WithCause(err)
	}
	var state model.WorkspaceState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, model.NewError(model.KindSchemaError, "parsing workspace state").WithPath(w.path(stateFileName)).WithCause(err)
	}
	return &state, nil
}

// writeState persists state atomically (temp+rename on the workspace
// directory), the same idiom as pkg/repository's index writers and
// internal/client.Download's temp-then-rename.
func (w *Workspace) writeState(state *model.WorkspaceState) (err error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return model.NewError(model.KindSchemaError, "encoding workspace state").WithCause(err)
	}
	data = append(data, '\n')

	path := w.path(stateFileName)
	tmp, err := os.CreateTemp(w.dir, ".tmp-update-")
	if err != nil {
		return model.NewError(model.KindIoError, "creating temp state file").WithPath(path).WithCause(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.NewError(model.KindIoError, "writing workspace state").WithPath(path).WithCause(err)
	}
	if err = tmp.Close(); err != nil {
		return model.NewError(model.KindIoError, "closing workspace state").WithPath(path).WithCause(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return model.NewError(model.KindIoError, "renaming workspace state into place").WithPath(path).WithCause(err)
	}
	return nil
}

// SetState persists a new state, overwriting whatever was there. Called
// by the executor as it drives the transitions
// diagrammed in spec.md §4.F.
func (w *Workspace) SetState(state *model.WorkspaceState) error {
	if err := w.writeState(state); err != nil {
		return err
	}
	log.Debug(log.Workspace, "workspace %s -> %s", w.dir, state.Kind)
	return nil
}
