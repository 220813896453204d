package codec

import (
	"io"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// EncoderFactory builds a Coder that writes compressed output to w.
type EncoderFactory func(w io.Writer, opts Options) (Coder, error)

// DecoderFactory builds a Decoder that reads compressed input from r.
type DecoderFactory func(r io.Reader, opts Options) (Decoder, error)

// PatchDecoderFactory builds a Decoder for a patcher codec: it is handed
// the decoded delta stream plus the path to the current on-disk source
// file (patchers need random access to the source, not just a Reader),
// and must produce the patched target bytes.
type PatchDecoderFactory func(delta io.Reader, sourcePath string, opts Options) (Decoder, error)

// PatchEncoderFunc produces the delta turning the file at sourcePath
// into the file at targetPath, writing the (uncompressed) delta bytes
// to w. Used only by the builder; the result is then wrapped by a
// regular data_codec compressor before being written into the package.
type PatchEncoderFunc func(w io.Writer, sourcePath, targetPath string, opts Options) error

type registryEntry struct {
	encode      EncoderFactory
	decode      DecoderFactory
	patchDecode PatchDecoderFactory
	patchEncode PatchEncoderFunc
}

// registry maps codec/patcher name to its factories, populated by each
// codec's init(), the same table-built-at-startup idiom as swupd's
// cmdMap/typeBytes lookup tables.
var registry = map[string]*registryEntry{}

func register(name string, encode EncoderFactory, decode DecoderFactory) {
	registry[name] = &registryEntry{encode: encode, decode: decode}
}

func registerPatcher(name string, patchEncode PatchEncoderFunc, patchDecode PatchDecoderFactory) {
	registry[name] = &registryEntry{patchEncode: patchEncode, patchDecode: patchDecode}
}

// NewEncoder resolves opts.Name in the registry and returns a Coder
// writing to w.
func NewEncoder(w io.Writer, opts Options) (Coder, error) {
	entry, ok := registry[opts.Name]
	if !ok || entry.encode == nil {
		return nil, model.NewError(model.KindCodecError, "unknown codec %q", opts.Name).WithCodec(opts.Name)
	}
	return entry.encode(w, opts)
}

// NewDecoder resolves spec's codec name in the registry and returns a
// Decoder reading from r. spec may carry options ("xz:6") even though
// decoding rarely needs them; the name is what selects the codec.
func NewDecoder(spec string, r io.Reader) (Decoder, error) {
	opts, err := ParseOptions(spec)
	if err != nil {
		return nil, err
	}
	entry, ok := registry[opts.Name]
	if !ok || entry.decode == nil {
		return nil, model.NewError(model.KindCodecError, "unknown codec %q", opts.Name).WithCodec(opts.Name)
	}
	return entry.decode(r, opts)
}

// NewPatchDecoder resolves spec as a patcher and produces the patched
// stream from delta bytes plus the existing source file on disk.
func NewPatchDecoder(spec string, delta io.Reader, sourcePath string) (Decoder, error) {
	opts, err := ParseOptions(spec)
	if err != nil {
		return nil, err
	}
	entry, ok := registry[opts.Name]
	if !ok || entry.patchDecode == nil {
		return nil, model.NewError(model.KindCodecError, "unknown patcher %q", opts.Name).WithCodec(opts.Name)
	}
	return entry.patchDecode(delta, sourcePath, opts)
}

// EncodePatch resolves spec as a patcher and writes the delta from
// sourcePath to targetPath into w. Used by the builder's Patch
// candidate encoding.
func EncodePatch(spec string, w io.Writer, sourcePath, targetPath string) error {
	opts, err := ParseOptions(spec)
	if err != nil {
		return err
	}
	entry, ok := registry[opts.Name]
	if !ok || entry.patchEncode == nil {
		return model.NewError(model.KindCodecError, "unknown patcher %q", opts.Name).WithCodec(opts.Name)
	}
	return entry.patchEncode(w, sourcePath, targetPath, opts)
}

// Registered reports whether name is a known codec or patcher, used by
// the builder to validate BuildOptions before starting a build.
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// IsPatcher reports whether name is registered as a patcher (two-input
// delta codec) rather than a plain compressor.
func IsPatcher(name string) bool {
	e, ok := registry[name]
	return ok && e.patchDecode != nil
}
