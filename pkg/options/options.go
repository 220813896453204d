// Package options loads a TOML config file describing defaults for the
// repository location, build parameters, and update behavior.
// Config.BuildOptions and Config.ExecutorOptions convert the Build and
// Update sections; the CLI itself reads only Repository.LOCATION, as the
// repository location for workspace commands given no <url>. Grounded on config/config.go's
// LoadDefaults/Parse/validate/SaveConfig shape, generalized from that
// package's single fixed MixConfig schema to this repo's own sections.
package options

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/builder"
	"github.com/clearlinux/speedupdate/pkg/executor"
	"github.com/clearlinux/speedupdate/pkg/model"
)

// DefaultFileName is the config file name looked for in the current
// directory when no --config flag is given, mirroring builder.conf.
const DefaultFileName = "speedupdate.conf"

// Config is the on-disk TOML schema. Every section has sane defaults,
// filled in by LoadDefaults, so a config file only needs to override
// what it wants to change.
type Config struct {
	Repository RepositoryConfig `toml:"Repository"`
	Build      BuildConfig      `toml:"Build"`
	Update     UpdateConfig     `toml:"Update"`

	filename string
}

// RepositoryConfig names the repository workspace commands read from
// when no <url> argument is given.
type RepositoryConfig struct {
	Location string `required:"true" toml:"LOCATION"`
}

// BuildConfig mirrors builder.Options in TOML-serializable form.
type BuildConfig struct {
	Compressors []string `toml:"COMPRESSORS"`
	Patchers    []string `toml:"PATCHERS"`
	NumThreads  int      `toml:"NUM_THREADS"`
}

// UpdateConfig mirrors executor.Options.
type UpdateConfig struct {
	Check bool `toml:"CHECK"`
}

// LoadDefaults fills config with the built-in defaults: an empty
// repository location (left to the caller/flag to supply), builder's
// own DefaultOptions, and Check enabled.
func (config *Config) LoadDefaults() {
	config.Repository.Location = ""

	def := builder.DefaultOptions()
	config.Build.Compressors = def.Compressors
	config.Build.Patchers = def.Patchers
	config.Build.NumThreads = def.NumThreads
	if config.Build.NumThreads < 1 {
		config.Build.NumThreads = runtime.NumCPU()
	}

	config.Update.Check = true
}

// Load reads and validates a config file, starting from the built-in
// defaults so a partial file only needs to name what it overrides.
func Load(filename string) (*Config, error) {
	config := &Config{filename: filename}
	config.LoadDefaults()

	if _, err := toml.DecodeFile(filename, config); err != nil {
		return nil, model.NewError(model.KindSchemaError, "parsing config file %s", filename).WithPath(filename).WithCause(err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	log.Debug(log.CLI, "loaded config from %s", filename)
	return config, nil
}

// Save writes config to its filename via temp+rename, the same
// atomicity idiom every other on-disk writer in this repo uses (the
// teacher's config.SaveConfig truncates in place instead).
func (config *Config) Save() (err error) {
	path := config.filename
	if path == "" {
		path = DefaultFileName
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs(path)), ".tmp-speedupdate-conf-")
	if err != nil {
		return model.NewError(model.KindIoError, "creating temp config file").WithPath(path).WithCause(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	enc := toml.NewEncoder(tmp)
	if err = enc.Encode(config); err != nil {
		_ = tmp.Close()
		return model.NewError(model.KindSchemaError, "encoding config file").WithPath(path).WithCause(err)
	}
	if err = tmp.Close(); err != nil {
		return model.NewError(model.KindIoError, "closing temp config file").WithPath(path).WithCause(err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return model.NewError(model.KindIoError, "renaming config file into place").WithPath(path).WithCause(err)
	}
	return nil
}

func abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(wd, path)
}

// validate walks every section with reflection, the same
// required:"true" tag convention config.go's validate uses, failing
// fast on a missing mandatory field instead of deep into a build.
func (config *Config) validate() error {
	rv := reflect.ValueOf(config).Elem()
	for i := 0; i < rv.NumField(); i++ {
		sectionV := rv.Field(i)
		if sectionV.Kind() != reflect.Struct {
			continue
		}
		sectionT := sectionV.Type()
		for j := 0; j < sectionT.NumField(); j++ {
			field := sectionT.Field(j)
			if tag, ok := field.Tag.Lookup("required"); ok && tag == "true" {
				if sectionV.Field(j).Kind() == reflect.String && sectionV.Field(j).String() == "" {
					name := field.Tag.Get("toml")
					if name == "" {
						name = field.Name
					}
					return model.NewError(model.KindSchemaError, "missing required config field %s.%s", sectionT.Name(), name)
				}
			}
		}
	}
	return nil
}

// BuildOptions converts Build into a builder.Options.
func (config *Config) BuildOptions() builder.Options {
	return builder.Options{
		Compressors: config.Build.Compressors,
		Patchers:    config.Build.Patchers,
		NumThreads:  config.Build.NumThreads,
	}
}

// ExecutorOptions converts Update into an executor.Options.
func (config *Config) ExecutorOptions() executor.Options {
	return executor.Options{Check: config.Update.Check}
}
