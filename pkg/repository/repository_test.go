package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return repo
}

func TestInitRejectsNonEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := Init(dir); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if _, err := Init(dir); err == nil {
		t.Fatal("second Init on same dir should fail")
	}
}

func TestRegisterVersionLifecycle(t *testing.T) {
	repo := newTestRepo(t)

	if err := repo.RegisterVersion(&model.Version{Revision: "1", Description: "first"}); err != nil {
		t.Fatalf("RegisterVersion: %v", err)
	}
	if err := repo.RegisterVersion(&model.Version{Revision: "1", Description: "dup"}); err == nil {
		t.Fatal("expected duplicate revision to fail")
	}

	versions, err := repo.Versions()
	if err != nil || len(versions) != 1 {
		t.Fatalf("Versions() = %v, %v", versions, err)
	}

	if err := repo.SetCurrentVersion("1"); err != nil {
		t.Fatalf("SetCurrentVersion: %v", err)
	}
	if err := repo.UnregisterVersion("1"); err == nil {
		t.Fatal("expected unregister of current version to fail")
	}

	cur, err := repo.CurrentVersion()
	if err != nil || cur != "1" {
		t.Fatalf("CurrentVersion() = %q, %v", cur, err)
	}
}

func TestRegisterPackage(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.RegisterVersion(&model.Version{Revision: "1"}); err != nil {
		t.Fatal(err)
	}

	data := []byte("package payload bytes")
	dataPath := repo.path(packagesDirName, "complete_1")
	if err := os.WriteFile(dataPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	meta := &model.PackageMetadata{
		PackageDataName: "complete_1",
		To:              "1",
		Size:            uint64(len(data)),
		Hash:            model.HashBytes(data),
		Operations:      []*model.Operation{},
	}
	metadataPath := filepath.Join(t.TempDir(), "complete_1.metadata")
	file := meta.ToFile()
	if err := writeJSONAtomic(metadataPath, file); err != nil {
		t.Fatal(err)
	}

	got, err := repo.RegisterPackage(metadataPath)
	if err != nil {
		t.Fatalf("RegisterPackage: %v", err)
	}
	if got.PackageDataName != "complete_1" {
		t.Errorf("RegisterPackage = %+v", got)
	}

	packages, err := repo.Packages()
	if err != nil || len(packages) != 1 {
		t.Fatalf("Packages() = %v, %v", packages, err)
	}

	if err := repo.UnregisterVersion("1"); err == nil {
		t.Fatal("expected unregister of referenced version to fail")
	}

	if err := repo.UnregisterPackage("complete_1"); err != nil {
		t.Fatalf("UnregisterPackage: %v", err)
	}
	if _, err := os.Stat(dataPath); err != nil {
		t.Error("package data blob should remain on disk after unregister")
	}
}

func TestRegisterPackageRejectsHashMismatch(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.RegisterVersion(&model.Version{Revision: "1"}); err != nil {
		t.Fatal(err)
	}

	dataPath := repo.path(packagesDirName, "complete_1")
	if err := os.WriteFile(dataPath, []byte("actual bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	meta := &model.PackageMetadata{
		PackageDataName: "complete_1",
		To:              "1",
		Size:            12,
		Hash:            model.HashBytes([]byte("different bytes!!")),
	}
	metadataPath := filepath.Join(t.TempDir(), "complete_1.metadata")
	if err := writeJSONAtomic(metadataPath, meta.ToFile()); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.RegisterPackage(metadataPath); err == nil {
		t.Fatal("expected hash mismatch to be rejected")
	}
}

func TestAvailablePackages(t *testing.T) {
	repo := newTestRepo(t)
	buildDir := t.TempDir()

	for _, name := range []string{"complete_1.metadata", "patch_1_2.metadata"} {
		if err := os.WriteFile(filepath.Join(buildDir, name), []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	available, err := repo.AvailablePackages(buildDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(available) != 2 {
		t.Fatalf("AvailablePackages = %v, want 2 entries", available)
	}
}

func TestLinkReturnsFileRepository(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.RegisterVersion(&model.Version{Revision: "1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetCurrentVersion("1"); err != nil {
		t.Fatal(err)
	}

	linked := repo.Link()
	cur, err := linked.CurrentVersion()
	if err != nil || cur != "1" {
		t.Fatalf("Link().CurrentVersion() = %q, %v", cur, err)
	}
}
