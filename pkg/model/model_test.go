package model

import (
	"encoding/json"
	"testing"
)

func TestCleanNameValid(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"1.0", true},
		{"patch_1.0_1.1", true},
		{"os-core-update", true},
		{"", false},
		{"has spaces", false},
		{"has/slash", false},
		{"semi;colon", false},
	}
	for _, c := range cases {
		if got := CleanName(c.name).Valid(); got != c.valid {
			t.Errorf("CleanName(%q).Valid() = %v, want %v", c.name, got, c.valid)
		}
	}
}

func TestHashRoundTrip(t *testing.T) {
	h := HashBytes([]byte("hi\n"))
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got Hash
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != h {
		t.Errorf("round trip mismatch: got %s, want %s", got, h)
	}
}

func TestHashBytesKnownValue(t *testing.T) {
	// sha256("hi\n")
	const want = "98ea6e4f216f2fb4b69fff9b3a44842c38686ca685f3f55dc48c5d3fb1107be4"
	h := HashBytes([]byte("hi\n"))
	if h.String() != want {
		t.Errorf("HashBytes(\"hi\\n\") = %s, want %s", h, want)
	}
}

func TestOperationValidate(t *testing.T) {
	cases := []struct {
		name string
		op   Operation
		ok   bool
	}{
		{"mkdir ok", Operation{Kind: OpMkDir, Path: "a"}, true},
		{"add missing codec", Operation{Kind: OpAdd, Path: "a"}, false},
		{"add ok", Operation{Kind: OpAdd, Path: "a", DataCodec: "raw"}, true},
		{"patch missing patcher", Operation{Kind: OpPatch, Path: "a", DataCodec: "raw"}, false},
		{"patch ok", Operation{Kind: OpPatch, Path: "a", DataCodec: "raw", Patcher: "vcdiff"}, true},
		{"no path", Operation{Kind: OpRm}, false},
	}
	for _, c := range cases {
		err := c.op.Validate()
		if (err == nil) != c.ok {
			t.Errorf("%s: Validate() error = %v, want ok=%v", c.name, err, c.ok)
		}
	}
}

func TestOpKindJSONRoundTrip(t *testing.T) {
	for _, k := range []OpKind{OpMkDir, OpRmDir, OpAdd, OpPatch, OpCheck, OpRm} {
		data, err := json.Marshal(k)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", k, err)
		}
		var got OpKind
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("Unmarshal(%s): %v", data, err)
		}
		if got != k {
			t.Errorf("round trip: got %v, want %v", got, k)
		}
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := NewError(KindNotFound, "version %q not found", "1.0").WithRevision("1.0")
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf() = %v, want KindNotFound", KindOf(err))
	}
}

func TestPackageFileNames(t *testing.T) {
	to := CleanName("1.1")
	if got := FileName(nil, to); got != "complete_1.1" {
		t.Errorf("FileName(nil, 1.1) = %q, want complete_1.1", got)
	}
	from := CleanName("1.0")
	if got := FileName(&from, to); got != "patch_1.0_1.1" {
		t.Errorf("FileName(1.0, 1.1) = %q, want patch_1.0_1.1", got)
	}
}

func TestSchemaVersionRejected(t *testing.T) {
	f := &PackageMetadataFile{Version: 2, To: "1.0"}
	if _, err := FromFile(f); KindOf(err) != KindSchemaError {
		t.Errorf("FromFile with bad version: err = %v, want SchemaError", err)
	}
}
