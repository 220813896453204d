package workspace

import (
	"os"
	"syscall"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// Lock is an advisory exclusive lock on <ws>/.update.lock, held for the
// duration of an update or check so two writers never race on the same
// workspace. Uses a direct syscall.Flock, the same "raw syscall for a
// primitive the standard library doesn't expose" idiom swupd/hash.go
// uses for syscall.Lstat/Stat_t field access.
type Lock struct {
	file *os.File
}

// Lock acquires the workspace's advisory lock non-blocking, returning
// a Busy error if another process already holds it.
func (w *Workspace) Lock() (*Lock, error) {
	path := w.path(lockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, model.NewError(model.KindIoError, "opening lock file %s", path).WithPath(path).WithCause(err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, model.NewError(model.KindBusy, "workspace %s is locked by another process", w.dir).WithPath(w.dir)
		}
		return nil, model.NewError(model.KindIoError, "locking %s", path).WithPath(path).WithCause(err)
	}
	return &Lock{file: f}, nil
}

// Unlock releases the lock and closes its file descriptor.
func (l *Lock) Unlock() error {
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return model.NewError(model.KindIoError, "unlocking workspace").WithCause(err)
	}
	return l.file.Close()
}
