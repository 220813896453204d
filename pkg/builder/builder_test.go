package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func mustWriteFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func testOptions() Options {
	return Options{Compressors: []string{"raw"}, Patchers: []string{"vcdiff"}, NumThreads: 2}
}

func TestBuildCompletePackage(t *testing.T) {
	src := t.TempDir()
	build := t.TempDir()

	mustWriteFile(t, filepath.Join(src, "bin", "app"), []byte("#!/bin/sh\necho hi\n"))
	mustWriteFile(t, filepath.Join(src, "README"), []byte("hello, speedupdate\n"))

	meta, err := Build(src, "", nil, build, "1", testOptions(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !meta.IsComplete() {
		t.Error("expected a complete package (From == nil)")
	}
	if meta.To != "1" {
		t.Errorf("To = %q, want 1", meta.To)
	}

	dataPath := filepath.Join(build, string(meta.PackageDataName))
	if _, err := os.Stat(dataPath); err != nil {
		t.Fatalf("package data missing: %v", err)
	}
	metaPath := dataPath + ".metadata"
	if _, err := os.Stat(metaPath); err != nil {
		t.Fatalf("package metadata missing: %v", err)
	}

	var sawAdd, sawMkDir bool
	for _, op := range meta.Operations {
		switch op.Kind {
		case model.OpAdd:
			sawAdd = true
		case model.OpMkDir:
			sawMkDir = true
		}
	}
	if !sawAdd || !sawMkDir {
		t.Errorf("expected Add and MkDir operations, got %+v", meta.Operations)
	}
}

func TestBuildPatchPackage(t *testing.T) {
	previous := t.TempDir()
	source := t.TempDir()
	build := t.TempDir()

	mustWriteFile(t, filepath.Join(previous, "unchanged"), []byte("same bytes\n"))
	mustWriteFile(t, filepath.Join(previous, "changed"), []byte("version one content, quite a bit of it to make a delta worthwhile\n"))
	mustWriteFile(t, filepath.Join(previous, "removed"), []byte("going away\n"))

	mustWriteFile(t, filepath.Join(source, "unchanged"), []byte("same bytes\n"))
	mustWriteFile(t, filepath.Join(source, "changed"), []byte("version two content, quite a bit of it to make a delta worthwhile\n"))
	mustWriteFile(t, filepath.Join(source, "added"), []byte("brand new\n"))

	from := model.CleanName("1")
	meta, err := Build(source, previous, &from, build, "2", testOptions(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if meta.IsComplete() {
		t.Error("expected a patch package (From != nil)")
	}
	if *meta.From != "1" || meta.To != "2" {
		t.Errorf("From/To = %v/%v, want 1/2", meta.From, meta.To)
	}

	kinds := map[model.OpKind]int{}
	for _, op := range meta.Operations {
		kinds[op.Kind]++
	}
	if kinds[model.OpCheck] == 0 {
		t.Error("expected a Check operation for the unchanged file")
	}
	if kinds[model.OpAdd] == 0 {
		t.Error("expected an Add operation for the new file")
	}
	if kinds[model.OpRm] == 0 {
		t.Error("expected a Rm operation for the removed file")
	}
	// The changed file becomes a Patch when the vcdiff patcher (an
	// external xdelta3 process) is available, or falls back to Add
	// otherwise - either is a valid build, so accept both.
	if kinds[model.OpPatch] == 0 && kinds[model.OpAdd] == 0 {
		t.Error("expected either a Patch or a fallback Add operation for the changed file")
	}
}

func TestOrderTasksParentBeforeChild(t *testing.T) {
	tasks := []*task{
		{op: &model.Operation{Kind: model.OpMkDir, Path: "a/b"}},
		{op: &model.Operation{Kind: model.OpMkDir, Path: "a"}},
		{op: &model.Operation{Kind: model.OpRmDir, Path: "x"}},
		{op: &model.Operation{Kind: model.OpRmDir, Path: "x/y"}},
	}
	ordered := orderTasks(tasks)

	var mkdirOrder, rmdirOrder []string
	for _, tk := range ordered {
		switch tk.op.Kind {
		case model.OpMkDir:
			mkdirOrder = append(mkdirOrder, tk.op.Path)
		case model.OpRmDir:
			rmdirOrder = append(rmdirOrder, tk.op.Path)
		}
	}
	if mkdirOrder[0] != "a" || mkdirOrder[1] != "a/b" {
		t.Errorf("MkDir order = %v, want [a a/b]", mkdirOrder)
	}
	if rmdirOrder[0] != "x/y" || rmdirOrder[1] != "x" {
		t.Errorf("RmDir order = %v, want [x/y x]", rmdirOrder)
	}
}

func TestBuildOptionsValidateRejectsUnknownCodec(t *testing.T) {
	opts := Options{Compressors: []string{"not-a-codec"}, NumThreads: 1}
	if err := opts.Validate(); err == nil {
		t.Error("expected unknown compressor to fail validation")
	}
}
