package ymap

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Options configures a Client's Engine. It carries ambient engine-tuning
// state (debug verbosity, capability mask, timeouts) — never application
// configuration like listen addresses or credentials, which stay the
// caller's concern.
type Options struct {
	Verbosity      int           `yaml:"verbosity"`
	CapabilityMask []string      `yaml:"capability_mask"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	Logger         Logger        `yaml:"-"`
}

// defaultConfigPaths tries a handful of conventional locations rather
// than requiring the caller to always pass an explicit path.
var defaultConfigPaths = []string{
	"/etc/ymap/ymap.yaml",
	"./config/ymap.yaml",
	"./ymap.yaml",
}

// LoadOptions reads Options from a YAML file. If path is empty, the
// conventional search paths are tried in order; the first one that
// exists wins. Returns zero Options (meaning: engine defaults) if none is
// found and path was empty — this is not an error, since Options are
// entirely optional tuning rather than load-bearing configuration.
func LoadOptions(path string) (Options, error) {
	candidates := []string{path}
	if path == "" {
		candidates = defaultConfigPaths
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Options{}, fmt.Errorf("ymap: reading options file %q: %w", p, err)
		}
		var opts Options
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return Options{}, fmt.Errorf("ymap: parsing options file %q: %w", p, err)
		}
		return opts, nil
	}

	if path != "" {
		return Options{}, fmt.Errorf("ymap: options file %q not found", path)
	}
	return Options{}, nil
}
