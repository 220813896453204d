package options

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	var config Config
	config.LoadDefaults()

	if len(config.Build.Compressors) == 0 {
		t.Fatal("expected default compressors to be set")
	}
	if config.Build.NumThreads < 1 {
		t.Fatalf("expected NumThreads >= 1, got %d", config.Build.NumThreads)
	}
	if !config.Update.Check {
		t.Fatal("expected Check to default to true")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speedupdate.conf")

	var config Config
	config.LoadDefaults()
	config.filename = path
	config.Repository.Location = "https://example.com/repo"
	config.Build.NumThreads = 3

	if err := config.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Repository.Location != "https://example.com/repo" {
		t.Fatalf("got location %q", loaded.Repository.Location)
	}
	if loaded.Build.NumThreads != 3 {
		t.Fatalf("got NumThreads %d", loaded.Build.NumThreads)
	}
}

func TestLoadRequiresRepositoryLocation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speedupdate.conf")

	var config Config
	config.LoadDefaults()
	config.filename = path
	if err := config.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validate to reject a missing repository location")
	}
}

func TestBuildAndExecutorOptionsConversion(t *testing.T) {
	var config Config
	config.LoadDefaults()
	config.Update.Check = false

	buildOpts := config.BuildOptions()
	if len(buildOpts.Compressors) != len(config.Build.Compressors) {
		t.Fatalf("compressors mismatch: %v vs %v", buildOpts.Compressors, config.Build.Compressors)
	}

	execOpts := config.ExecutorOptions()
	if execOpts.Check {
		t.Fatal("expected Check to carry through as false")
	}
}
