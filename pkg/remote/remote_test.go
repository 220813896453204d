package remote

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/clearlinux/speedupdate/pkg/model"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileRepository(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "current"), []byte(`{"version":"2"}`))
	writeFile(t, filepath.Join(dir, "versions"), []byte(`[{"revision":"1","description":"d1"},{"revision":"2","description":"d2"}]`))
	writeFile(t, filepath.Join(dir, "packages.json"), []byte(`[]`))
	writeFile(t, filepath.Join(dir, "packages", "complete_2"), []byte("0123456789"))

	repo := NewFileRepository(dir)

	cur, err := repo.CurrentVersion()
	if err != nil || cur != "2" {
		t.Fatalf("CurrentVersion() = %q, %v", cur, err)
	}
	versions, err := repo.Versions()
	if err != nil || len(versions) != 2 {
		t.Fatalf("Versions() = %v, %v", versions, err)
	}

	rc, err := repo.Fetch("complete_2", model.ByteRange{Start: 3, End: 6})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()
	buf := make([]byte, 3)
	if _, err := rc.Read(buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "345" {
		t.Errorf("Fetch range = %q, want %q", buf, "345")
	}
}

func TestHTTPRepositoryFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := []byte("abcdefghij")
		if r.URL.Path == "/packages/complete_2" {
			w.Header().Set("Content-Range", "bytes 2-4/10")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(body[2:5])
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	repo := NewHTTPRepository(srv.URL, srv.Client())
	rc, err := repo.Fetch("complete_2", model.ByteRange{Start: 2, End: 5})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = rc.Close() }()
	buf := make([]byte, 3)
	if _, err := io.ReadFull(rc, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "cde" {
		t.Errorf("Fetch = %q, want %q", buf, "cde")
	}
}

func TestAutoRepositoryScheme(t *testing.T) {
	if _, ok := AutoRepository("/tmp/repo").(*FileRepository); !ok {
		t.Error("bare path should resolve to FileRepository")
	}
	if _, ok := AutoRepository("file:///tmp/repo").(*FileRepository); !ok {
		t.Error("file:// should resolve to FileRepository")
	}
	if _, ok := AutoRepository("http://example.com/repo").(*HTTPRepository); !ok {
		t.Error("http:// should resolve to HTTPRepository")
	}
}
