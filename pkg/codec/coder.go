// Package codec is the named streaming-compressor/patcher registry: the
// same "codec name resolves to a filter" idiom as swupd's
// fullfileCompressors table and its ExternalWriter/ExternalReader pipes,
// generalized into an open registry keyed by string name.
package codec

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/clearlinux/speedupdate/pkg/model"
)

// Coder wraps an inner io.Writer, forwarding bytes through a streaming
// transformation. Finish is distinct from a plain flush: it tells the
// codec no more bytes are coming and it must emit any trailing frame
// data, surfacing CodecError if the stream was left incomplete.
type Coder interface {
	io.Writer
	Finish() error
}

// Decoder is the read-side counterpart of Coder: wraps an inner
// io.Reader, undoing the transformation as bytes are read.
type Decoder interface {
	io.Reader
}

// Options is a parsed "<name>[:<k>=<v>;...]" codec specifier, e.g.
// "brotli:6" or "zstd:level=3;minsize=32MB".
type Options struct {
	Name   string
	Params map[string]string
	// Positional is set when the spec used a single bare value instead of
	// key=value pairs, e.g. "brotli:6" -> Positional="6".
	Positional string
}

// ParseOptions parses a codec spec string into Options.
func ParseOptions(spec string) (Options, error) {
	name, rest, hasRest := strings.Cut(spec, ":")
	if name == "" {
		return Options{}, model.NewError(model.KindCodecError, "empty codec name in spec %q", spec)
	}
	opts := Options{Name: name, Params: map[string]string{}}
	if !hasRest || rest == "" {
		return opts, nil
	}
	for _, part := range strings.Split(rest, ";") {
		if part == "" {
			continue
		}
		k, v, hasEq := strings.Cut(part, "=")
		if !hasEq {
			// A single bare positional value, e.g. "brotli:6".
			opts.Positional = k
			continue
		}
		opts.Params[k] = v
	}
	return opts, nil
}

func (o Options) String() string {
	if len(o.Params) == 0 && o.Positional == "" {
		return o.Name
	}
	var b strings.Builder
	b.WriteString(o.Name)
	b.WriteByte(':')
	if o.Positional != "" {
		b.WriteString(o.Positional)
		return b.String()
	}
	first := true
	for k, v := range o.Params {
		if !first {
			b.WriteByte(';')
		}
		first = false
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// intParam reads a named or positional integer parameter, falling back
// to def when absent.
func (o Options) intParam(key string, def int) (int, error) {
	v, ok := o.Params[key]
	if !ok {
		if o.Positional == "" {
			return def, nil
		}
		v = o.Positional
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, model.NewError(model.KindCodecError, "invalid %s value %q for codec %s", key, v, o.Name).WithCodec(o.Name)
	}
	return n, nil
}

// sizeParam reads a named size parameter like "32MB", "512KB", "128".
func (o Options) sizeParam(key string, def uint64) (uint64, error) {
	v, ok := o.Params[key]
	if !ok {
		return def, nil
	}
	return parseSize(v)
}

func parseSize(v string) (uint64, error) {
	upper := strings.ToUpper(v)
	mult := uint64(1)
	switch {
	case strings.HasSuffix(upper, "GB"):
		mult = 1 << 30
		upper = strings.TrimSuffix(upper, "GB")
	case strings.HasSuffix(upper, "MB"):
		mult = 1 << 20
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "KB"):
		mult = 1 << 10
		upper = strings.TrimSuffix(upper, "KB")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q", v)
	}
	return n * mult, nil
}
