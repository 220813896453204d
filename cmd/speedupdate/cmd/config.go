package cmd

import (
	"os"

	"github.com/clearlinux/speedupdate/log"
	"github.com/clearlinux/speedupdate/pkg/options"
)

// loadConfigOrDefaults loads configFile if it was given (or
// options.DefaultFileName if present in the working directory), and
// falls back to the built-in defaults otherwise. Commands that don't
// strictly need a config file (most of them; flags cover the rest)
// use this instead of failing when one is absent.
func loadConfigOrDefaults() *options.Config {
	path := configFile
	if path == "" {
		if _, err := os.Stat(options.DefaultFileName); err == nil {
			path = options.DefaultFileName
		}
	}
	if path == "" {
		config := &options.Config{}
		config.LoadDefaults()
		return config
	}

	config, err := options.Load(path)
	if err != nil {
		log.Debug(log.CLI, "not using config file %s: %s", path, err)
		config = &options.Config{}
		config.LoadDefaults()
	}
	return config
}
