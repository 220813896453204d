package codec

import "io"

// rawCoder is the identity codec: Write passes straight through, Finish
// is a no-op. Used as the always-available fallback every candidate is
// compared against in the builder's try-each-keep-shortest pass.
type rawCoder struct {
	w io.Writer
}

func (c *rawCoder) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *rawCoder) Finish() error {
	return nil
}

type rawDecoder struct {
	r io.Reader
}

func (d *rawDecoder) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func init() {
	register("raw",
		func(w io.Writer, _ Options) (Coder, error) {
			return &rawCoder{w: w}, nil
		},
		func(r io.Reader, _ Options) (Decoder, error) {
			return &rawDecoder{r: r}, nil
		},
	)
}
