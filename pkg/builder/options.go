// Package builder implements the three-stage package build pipeline:
// task list, parallel candidate encoding, and package assembly.
package builder

import (
	"runtime"

	"github.com/clearlinux/speedupdate/pkg/codec"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// Options controls a build: which compressors and patchers are tried
// for each candidate operation, and how many workers encode candidates
// concurrently.
type Options struct {
	Compressors []string
	Patchers    []string
	NumThreads  int
}

// DefaultOptions returns the build defaults: raw plus a zstd candidate,
// the vcdiff patcher, and one worker per available CPU, the same
// "numWorkers < 1 means 1" floor swupd.CreateFullfiles applies.
func DefaultOptions() Options {
	return Options{
		Compressors: []string{"raw", "zstd:level=9"},
		Patchers:    []string{"vcdiff"},
		NumThreads:  runtime.NumCPU(),
	}
}

// Validate checks that every named compressor and patcher is actually
// registered, so a build fails fast instead of mid-pipeline.
func (o *Options) Validate() error {
	if o.NumThreads < 1 {
		o.NumThreads = 1
	}
	if len(o.Compressors) == 0 {
		o.Compressors = []string{"raw"}
	}
	for _, spec := range o.Compressors {
		opts, err := codec.ParseOptions(spec)
		if err != nil {
			return err
		}
		if !codec.Registered(opts.Name) {
			return model.NewError(model.KindCodecError, "unknown compressor %q in build options", opts.Name).WithCodec(opts.Name)
		}
	}
	for _, spec := range o.Patchers {
		opts, err := codec.ParseOptions(spec)
		if err != nil {
			return err
		}
		if !codec.IsPatcher(opts.Name) {
			return model.NewError(model.KindCodecError, "unknown patcher %q in build options", opts.Name).WithCodec(opts.Name)
		}
	}
	return nil
}
