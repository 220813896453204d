package repository

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/remote"
)

// Layout, on disk:
//
//	<repo>/current                       JSON: model.Current
//	<repo>/versions                       JSON: []model.Version
//	<repo>/packages.json                  JSON: []model.PackageMetadata
//	<repo>/packages/<package>.metadata     JSON: model.PackageMetadataFile
//	<repo>/packages/<package>              opaque package data blob
//
// The index of registered packages can't share its on-disk name with
// the packages/ directory that holds their metadata and data files, so
// it lives at packages.json next to versions and current.
const (
	currentFileName  = "current"
	versionsFileName = "versions"
	packagesFileName = "packages.json"
	packagesDirName  = "packages"
)

// Repository is the local, filesystem-backed repository store:
// init/register/unregister plus the read-only accessors. All mutating
// operations are synchronous and assume a single writer, matching the
// core design's "concurrent writers are not supported" invariant.
type Repository struct {
	dir string
}

// Open returns a Repository handle for an existing repository directory
// without validating its contents; use Init to create a new one.
func Open(dir string) *Repository {
	return &Repository{dir: dir}
}

func (r *Repository) path(elem ...string) string {
	return filepath.Join(append([]string{r.dir}, elem...)...)
}

// Init creates <repo>/ with an empty versions list, an empty packages
// index, and no current file, mirroring swupd's "create the state dirs
// if absent" bootstrap in internal/client.NewState. Fails if the
// directory already exists and contains conflicting index files.
func Init(dir string) (*Repository, error) {
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return nil, model.NewError(model.KindAlreadyExists, "repository path %s is not a directory", dir).WithPath(dir)
		}
		for _, name := range []string{currentFileName, versionsFileName, packagesFileName} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return nil, model.NewError(model.KindAlreadyExists, "repository %s already contains %s", dir, name).WithPath(dir)
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, model.NewError(model.KindIoError, "accessing repository path %s", dir).WithPath(dir).WithCause(err)
	}

	if err := os.MkdirAll(filepath.Join(dir, packagesDirName), 0755); err != nil {
		return nil, model.NewError(model.KindIoError, "creating repository %s", dir).WithPath(dir).WithCause(err)
	}

	repo := &Repository{dir: dir}
	if err := writeJSONAtomic(repo.path(versionsFileName), []*model.Version{}); err != nil {
		return nil, err
	}
	if err := writeJSONAtomic(repo.path(packagesFileName), []*model.PackageMetadata{}); err != nil {
		return nil, err
	}
	log.Info(log.Repository, "initialized repository at %s", dir)
	return repo, nil
}

// Versions returns the published versions in registration order.
func (r *Repository) Versions() ([]*model.Version, error) {
	var versions []*model.Version
	if err := readJSON(r.path(versionsFileName), &versions); err != nil {
		return nil, model.NewError(model.KindIoError, "reading versions index").WithPath(r.path(versionsFileName)).WithCause(err)
	}
	return versions, nil
}

// Packages returns the registered package metadata.
func (r *Repository) Packages() ([]*model.PackageMetadata, error) {
	var packages []*model.PackageMetadata
	if err := readJSON(r.path(packagesFileName), &packages); err != nil {
		return nil, model.NewError(model.KindIoError, "reading packages index").WithPath(r.path(packagesFileName)).WithCause(err)
	}
	return packages, nil
}

// CurrentVersion returns the repository's current revision, or
// KindNotFound if none has been set yet.
func (r *Repository) CurrentVersion() (model.CleanName, error) {
	var cur model.Current
	err := readJSON(r.path(currentFileName), &cur)
	if os.IsNotExist(err) {
		return "", model.NewError(model.KindNotFound, "repository has no current version").WithPath(r.path(currentFileName))
	}
	if err != nil {
		return "", model.NewError(model.KindIoError, "reading current version").WithPath(r.path(currentFileName)).WithCause(err)
	}
	return cur.Version, nil
}

// RegisterVersion appends v to the versions index. Fails if
// v.Revision is already registered.
func (r *Repository) RegisterVersion(v *model.Version) error {
	if err := v.Revision.Check(); err != nil {
		return err
	}
	versions, err := r.Versions()
	if err != nil {
		return err
	}
	for _, existing := range versions {
		if existing.Revision == v.Revision {
			return model.NewError(model.KindAlreadyExists, "version %s already registered", v.Revision).WithRevision(string(v.Revision))
		}
	}
	versions = append(versions, v)
	if err := writeJSONAtomic(r.path(versionsFileName), versions); err != nil {
		return err
	}
	log.Debug(log.Repository, "registered version %s", v.Revision)
	return nil
}

// UnregisterVersion removes revision from the versions index. Fails if
// any registered package references it as From or To, or if it is the
// current version (invariants i-ii).
func (r *Repository) UnregisterVersion(revision model.CleanName) error {
	versions, err := r.Versions()
	if err != nil {
		return err
	}
	packages, err := r.Packages()
	if err != nil {
		return err
	}
	for _, p := range packages {
		if p.To == revision || (p.From != nil && *p.From == revision) {
			return model.NewError(model.KindInUse, "version %s is referenced by package %s", revision, p.PackageDataName).WithRevision(string(revision))
		}
	}
	if cur, err := r.CurrentVersion(); err == nil && cur == revision {
		return model.NewError(model.KindInUse, "version %s is the current version", revision).WithRevision(string(revision))
	}

	kept := versions[:0:0]
	found := false
	for _, v := range versions {
		if v.Revision == revision {
			found = true
			continue
		}
		kept = append(kept, v)
	}
	if !found {
		return model.NewError(model.KindNotFound, "version %s is not registered", revision).WithRevision(string(revision))
	}
	return writeJSONAtomic(r.path(versionsFileName), kept)
}

// SetCurrentVersion atomically writes the current pointer. revision
// must already be registered.
func (r *Repository) SetCurrentVersion(revision model.CleanName) error {
	versions, err := r.Versions()
	if err != nil {
		return err
	}
	ok := false
	for _, v := range versions {
		if v.Revision == revision {
			ok = true
			break
		}
	}
	if !ok {
		return model.NewError(model.KindNotFound, "version %s is not registered", revision).WithRevision(string(revision))
	}
	return writeJSONAtomic(r.path(currentFileName), &model.Current{Version: revision})
}

// RegisterPackage reads an external *.metadata file, verifies the
// package data blob it references is present in <repo>/packages/ with
// the declared size and hash (invariant iv extended to the store
// itself), and appends it to the packages index.
func (r *Repository) RegisterPackage(metadataPath string) (*model.PackageMetadata, error) {
	var file model.PackageMetadataFile
	if err := readJSON(metadataPath, &file); err != nil {
		return nil, model.NewError(model.KindIoError, "reading package metadata %s", metadataPath).WithPath(metadataPath).WithCause(err)
	}
	meta, err := model.FromFile(&file)
	if err != nil {
		return nil, err
	}
	if err := meta.PackageDataName.Check(); err != nil {
		return nil, err
	}

	packages, err := r.Packages()
	if err != nil {
		return nil, err
	}
	for _, p := range packages {
		if p.PackageDataName == meta.PackageDataName {
			return nil, model.NewError(model.KindAlreadyExists, "package %s already registered", meta.PackageDataName).WithPath(string(meta.PackageDataName))
		}
	}

	dataPath := r.path(packagesDirName, string(meta.PackageDataName))
	if err := r.verifyPackageData(dataPath, meta); err != nil {
		return nil, err
	}

	destMetadata := r.path(packagesDirName, string(meta.PackageDataName)+".metadata")
	if destMetadata != metadataPath {
		if err := copyFile(metadataPath, destMetadata); err != nil {
			return nil, err
		}
	}

	packages = append(packages, meta)
	if err := writeJSONAtomic(r.path(packagesFileName), packages); err != nil {
		return nil, err
	}
	log.Info(log.Repository, "registered package %s (%d bytes)", meta.PackageDataName, meta.Size)
	return meta, nil
}

func (r *Repository) verifyPackageData(dataPath string, meta *model.PackageMetadata) error {
	fi, err := os.Stat(dataPath)
	if err != nil {
		return model.NewError(model.KindNotFound, "package data %s not found", dataPath).WithPath(dataPath).WithCause(err)
	}
	if uint64(fi.Size()) != meta.Size {
		return model.NewError(model.KindIntegrityMismatch, "package data %s has size %d, expected %d", dataPath, fi.Size(), meta.Size).WithPath(dataPath)
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return model.NewError(model.KindIoError, "opening package data %s", dataPath).WithPath(dataPath).WithCause(err)
	}
	defer func() { _ = f.Close() }()

	hasher := model.NewHasher()
	if _, err := io.Copy(hasher, f); err != nil {
		return model.NewError(model.KindIoError, "hashing package data %s", dataPath).WithPath(dataPath).WithCause(err)
	}
	if hasher.Sum() != meta.Hash {
		return model.NewError(model.KindIntegrityMismatch, "package data %s hash mismatch", dataPath).WithPath(dataPath)
	}
	return nil
}

// UnregisterPackage removes name from the index only; the data blob and
// its .metadata sibling are left on disk.
func (r *Repository) UnregisterPackage(name model.CleanName) error {
	packages, err := r.Packages()
	if err != nil {
		return err
	}
	kept := packages[:0:0]
	found := false
	for _, p := range packages {
		if p.PackageDataName == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return model.NewError(model.KindNotFound, "package %s is not registered", name).WithPath(string(name))
	}
	return writeJSONAtomic(r.path(packagesFileName), kept)
}

// AvailablePackages lists the *.metadata files present in buildDir that
// are not yet registered in this repository's packages index.
func (r *Repository) AvailablePackages(buildDir string) ([]string, error) {
	packages, err := r.Packages()
	if err != nil {
		return nil, err
	}
	registered := make(map[string]bool, len(packages))
	for _, p := range packages {
		registered[string(p.PackageDataName)] = true
	}

	entries, err := os.ReadDir(buildDir)
	if err != nil {
		return nil, model.NewError(model.KindIoError, "listing build directory %s", buildDir).WithPath(buildDir).WithCause(err)
	}
	var available []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".metadata") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".metadata")
		if !registered[name] {
			available = append(available, filepath.Join(buildDir, e.Name()))
		}
	}
	sort.Strings(available)
	return available, nil
}

// Link returns a RemoteRepository handle backed by direct filesystem
// reads of this repository's packages/ directory, the local-transport
// special case internal/client.State already demonstrates by treating
// baseContent as either a path or a URL.
func (r *Repository) Link() remote.RemoteRepository {
	return remote.NewFileRepository(r.dir)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return model.NewError(model.KindIoError, "opening %s", src).WithPath(src).WithCause(err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-")
	if err != nil {
		return model.NewError(model.KindIoError, "creating temp file for %s", dst).WithPath(dst).WithCause(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return model.NewError(model.KindIoError, "copying to %s", dst).WithPath(dst).WithCause(err)
	}
	if err = tmp.Close(); err != nil {
		return model.NewError(model.KindIoError, "closing %s", dst).WithPath(dst).WithCause(err)
	}
	return os.Rename(tmpName, dst)
}
