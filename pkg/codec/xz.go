package codec

import (
	"io"

	"github.com/ulikunitz/xz"

	"github.com/clearlinux/speedupdate/pkg/model"
)

const xzDefaultLevel = 6

type xzCoder struct {
	w *xz.Writer
}

func (c *xzCoder) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *xzCoder) Finish() error {
	return c.w.Close()
}

type xzDecoder struct {
	r *xz.Reader
}

func (d *xzDecoder) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

// dictCapForLevel scales the LZMA2 dictionary size with the requested
// level (0-9), the same knob xz(1)'s -0..-9 flags expose.
func dictCapForLevel(level int) int {
	if level < 0 {
		level = 0
	}
	if level > 9 {
		level = 9
	}
	return (1 << 20) << uint(level/2)
}

func init() {
	newXZ := func(w io.Writer, opts Options) (Coder, error) {
		level, err := opts.intParam("level", xzDefaultLevel)
		if err != nil {
			return nil, err
		}
		cfg := xz.WriterConfig{DictCap: dictCapForLevel(level)}
		xw, err := cfg.NewWriter(w)
		if err != nil {
			return nil, model.NewError(model.KindCodecError, "creating xz encoder").WithCodec("xz").WithCause(err)
		}
		return &xzCoder{w: xw}, nil
	}
	newXZDecoder := func(r io.Reader, _ Options) (Decoder, error) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, model.NewError(model.KindCodecError, "creating xz decoder").WithCodec("xz").WithCause(err)
		}
		return &xzDecoder{r: xr}, nil
	}
	register("xz", newXZ, newXZDecoder)
	register("lzma", newXZ, newXZDecoder)
}
