package integrity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
	"github.com/clearlinux/speedupdate/pkg/remote"
	"github.com/clearlinux/speedupdate/pkg/workspace"
)

func writeRepoFixture(t *testing.T, dir string, pkgs []*model.PackageMetadata) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(pkgs)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "packages.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	cur, err := json.Marshal(model.Current{Version: "2"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "current"), cur, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "versions"), []byte(`[]`), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckDetectsMismatch(t *testing.T) {
	repoDir := t.TempDir()
	content := []byte("hello world")
	hash := model.HashBytes(content)

	pkg := &model.PackageMetadata{
		PackageDataName: model.FileName(nil, "2"),
		To:              "2",
		Size:            uint64(len(content)),
		Operations: []*model.Operation{
			{Kind: model.OpAdd, Path: "a.txt", FinalHash: hash, FinalSize: uint64(len(content)), DataCodec: "raw", DataRange: model.ByteRange{Start: 0, End: uint64(len(content))}},
		},
	}
	writeRepoFixture(t, repoDir, []*model.PackageMetadata{pkg})

	repo := remote.NewFileRepository(repoDir)

	wsDir := t.TempDir()
	ws, err := workspace.Open(wsDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.SetState(model.StableState("2")); err != nil {
		t.Fatal(err)
	}

	// Correct content: no failures expected.
	if err := os.WriteFile(filepath.Join(wsDir, "a.txt"), content, 0644); err != nil {
		t.Fatal(err)
	}
	rep, err := Check(ws, repo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Clean() {
		t.Errorf("expected clean report, got failures: %v", rep.Failures)
	}

	// Corrupt the file: a failure must be recorded.
	if err := os.WriteFile(filepath.Join(wsDir, "a.txt"), []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}
	rep, err = Check(ws, repo, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Clean() {
		t.Fatal("expected a failure for tampered content")
	}
	if rep.Failures[0] != "a.txt" {
		t.Errorf("failures = %v, want [a.txt]", rep.Failures)
	}
}

func TestCheckRejectsNonStableWorkspace(t *testing.T) {
	ws, err := workspace.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := remote.NewFileRepository(t.TempDir())
	if _, err := Check(ws, repo, nil); err == nil {
		t.Fatal("expected error for New workspace")
	}
}
