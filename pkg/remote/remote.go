// Package remote implements the RemoteRepository capability consumed by
// the workspace: a read-only view of a repository's versions, packages
// index, and package data, over either a local filesystem path or an
// HTTP(S) URL.
package remote

import (
	"io"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// RemoteRepository is the capability the workspace/planner/executor
// consume to read a repository without caring whether it is local or
// remote, the same role internal/client.State plays for swupd.
type RemoteRepository interface {
	// CurrentVersion returns the repository's current revision.
	CurrentVersion() (model.CleanName, error)

	// Versions returns the repository's published versions.
	Versions() ([]*model.Version, error)

	// Packages returns the repository's registered package metadata.
	Packages() ([]*model.PackageMetadata, error)

	// Fetch opens the byte range [rng.Start, rng.End) of the named
	// package's data blob. The returned ReadCloser must be closed by
	// the caller. A short read (fewer than rng.Len() bytes before EOF)
	// is an error: the transport must honour the range exactly.
	Fetch(packageDataName model.CleanName, rng model.ByteRange) (io.ReadCloser, error)
}
