package codec

import (
	"io"

	"github.com/andybalholm/brotli"

	"github.com/clearlinux/speedupdate/pkg/model"
)

const brotliDefaultLevel = 6

type brotliCoder struct {
	w *brotli.Writer
}

func (c *brotliCoder) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *brotliCoder) Finish() error {
	return c.w.Close()
}

type brotliDecoder struct {
	r *brotli.Reader
}

func (d *brotliDecoder) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func init() {
	register("brotli",
		func(w io.Writer, opts Options) (Coder, error) {
			level, err := opts.intParam("level", brotliDefaultLevel)
			if err != nil {
				return nil, err
			}
			if level < 0 || level > 11 {
				return nil, model.NewError(model.KindCodecError, "brotli level %d out of range [0,11]", level).WithCodec("brotli")
			}
			bw := brotli.NewWriterLevel(w, level)
			return &brotliCoder{w: bw}, nil
		},
		func(r io.Reader, _ Options) (Decoder, error) {
			return &brotliDecoder{r: brotli.NewReader(r)}, nil
		},
	)
}
