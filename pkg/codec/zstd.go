package codec

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/clearlinux/speedupdate/pkg/model"
)

const zstdDefaultLevel = 3

type zstdCoder struct {
	w *zstd.Encoder
}

func (c *zstdCoder) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *zstdCoder) Finish() error {
	return c.w.Close()
}

type zstdDecoder struct {
	r *zstd.Decoder
}

func (d *zstdDecoder) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func init() {
	register("zstd",
		func(w io.Writer, opts Options) (Coder, error) {
			level, err := opts.intParam("level", zstdDefaultLevel)
			if err != nil {
				return nil, err
			}
			if level < 1 || level > 22 {
				return nil, model.NewError(model.KindCodecError, "zstd level %d out of range [1,22]", level).WithCodec("zstd")
			}
			enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
			if err != nil {
				return nil, model.NewError(model.KindCodecError, "creating zstd encoder").WithCodec("zstd").WithCause(err)
			}
			return &zstdCoder{w: enc}, nil
		},
		func(r io.Reader, _ Options) (Decoder, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, model.NewError(model.KindCodecError, "creating zstd decoder").WithCodec("zstd").WithCause(err)
			}
			return &zstdReadCloserDecoder{dec: dec}, nil
		},
	)
}

// zstdReadCloserDecoder adapts the klauspost zstd.Decoder (which exposes
// Close instead of implementing io.Closer cleanly alongside Read through
// our Decoder interface) to plain Decoder semantics.
type zstdReadCloserDecoder struct {
	dec *zstd.Decoder
}

func (d *zstdReadCloserDecoder) Read(p []byte) (int, error) {
	return d.dec.Read(p)
}

// MinSize returns the minsize threshold encoded in opts, used by the
// builder to decide whether zstd is even worth trying for a candidate,
// per the core design's "encoder selects zstd for inputs >= minsize,
// else raw (builder decision)."
func MinSize(opts Options) (uint64, bool) {
	v, err := opts.sizeParam("minsize", 0)
	if err != nil || v == 0 {
		return 0, false
	}
	return v, true
}
