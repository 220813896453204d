package codec

import (
	"bytes"
	"io"
	"testing"
)

func TestParseOptions(t *testing.T) {
	cases := []struct {
		spec       string
		name       string
		positional string
		params     map[string]string
	}{
		{"raw", "raw", "", map[string]string{}},
		{"brotli:6", "brotli", "6", map[string]string{}},
		{"zstd:level=3;minsize=32MB", "zstd", "", map[string]string{"level": "3", "minsize": "32MB"}},
	}
	for _, c := range cases {
		opts, err := ParseOptions(c.spec)
		if err != nil {
			t.Fatalf("ParseOptions(%q): %v", c.spec, err)
		}
		if opts.Name != c.name || opts.Positional != c.positional {
			t.Errorf("ParseOptions(%q) = %+v, want name=%s positional=%s", c.spec, opts, c.name, c.positional)
		}
		for k, v := range c.params {
			if opts.Params[k] != v {
				t.Errorf("ParseOptions(%q).Params[%s] = %q, want %q", c.spec, k, opts.Params[k], v)
			}
		}
	}
}

func TestMinSizeParam(t *testing.T) {
	opts, err := ParseOptions("zstd:level=3;minsize=32MB")
	if err != nil {
		t.Fatal(err)
	}
	size, ok := MinSize(opts)
	if !ok {
		t.Fatal("expected minsize to be set")
	}
	if size != 32<<20 {
		t.Errorf("MinSize = %d, want %d", size, 32<<20)
	}
}

func roundTrip(t *testing.T, name string, input []byte) {
	t.Helper()
	opts, err := ParseOptions(name)
	if err != nil {
		t.Fatalf("ParseOptions(%q): %v", name, err)
	}

	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, opts)
	if err != nil {
		t.Fatalf("NewEncoder(%q): %v", name, err)
	}
	if _, err := enc.Write(input); err != nil {
		t.Fatalf("encode Write: %v", err)
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("encode Finish: %v", err)
	}

	dec, err := NewDecoder(name, &buf)
	if err != nil {
		t.Fatalf("NewDecoder(%q): %v", name, err)
	}
	got, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, input) {
		t.Errorf("%s round trip mismatch: got %q, want %q", name, got, input)
	}
}

func TestRawRoundTrip(t *testing.T) {
	roundTrip(t, "raw", []byte("hello, speedupdate\n"))
}

func TestBrotliRoundTrip(t *testing.T) {
	roundTrip(t, "brotli:6", bytes.Repeat([]byte("abcdefgh"), 200))
}

func TestZstdRoundTrip(t *testing.T) {
	roundTrip(t, "zstd:level=3", bytes.Repeat([]byte("abcdefgh"), 200))
}

func TestXzRoundTrip(t *testing.T) {
	roundTrip(t, "xz:6", bytes.Repeat([]byte("abcdefgh"), 200))
}

func TestRegisteredAndIsPatcher(t *testing.T) {
	for _, name := range []string{"raw", "brotli", "zstd", "xz", "lzma", "vcdiff"} {
		if !Registered(name) {
			t.Errorf("Registered(%q) = false, want true", name)
		}
	}
	if !IsPatcher("vcdiff") {
		t.Errorf("IsPatcher(vcdiff) = false, want true")
	}
	if IsPatcher("raw") {
		t.Errorf("IsPatcher(raw) = true, want false")
	}
}

func TestUnknownCodec(t *testing.T) {
	if _, err := NewEncoder(&bytes.Buffer{}, Options{Name: "nope"}); err == nil {
		t.Error("expected error for unknown codec")
	}
}
