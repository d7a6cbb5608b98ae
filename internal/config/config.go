// Package config loads the scheduler daemon's YAML configuration into a
// typed Config struct, following the resource/task loader selection and
// per-algorithm parameter blocks of spec §6.
package config

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/aw32/hetsched/errext"
	"github.com/aw32/hetsched/errext/exitcodes"
)

// Loader selection values for ResourceLoader / TaskLoader.
const (
	ResourceLoaderDefault = "default"
	ResourceLoaderMS      = "resourceloaderms"

	TaskLoaderDefault = "default"
	TaskLoaderMS      = "taskloaderms"
)

// Algorithms carries the per-algorithm parameter blocks named in spec §6.
// It is one flat typed struct rather than a generic map; each mapper
// constructor in pkg/registry reads only the fields it needs.
type Algorithms struct {
	KPBPercentage      float64 `yaml:"kpb_percentage"`
	SARatioLower       float64 `yaml:"sa_ratio_lower"`
	SARatioHigher      float64 `yaml:"sa_ratio_higher"`
	GeneticSeed        int64   `yaml:"genetic_seed"`
	SimAnnInitProb     float64 `yaml:"simann_init_prob"`
	SimAnnLoopsFactor  float64 `yaml:"simann_loops_factor"`
	SimAnnReduce       float64 `yaml:"simann_reduce"`
	SimAnnMinProb      float64 `yaml:"simann_min_prob"`
	GeneticMigSolver   string  `yaml:"geneticmig_solver"`
	LPDestination      string  `yaml:"lp_destination"`
}

// Config is the scheduler daemon's full configuration, as loaded from
// SCHED_CONFIG.
type Config struct {
	ResourceLoader        string `yaml:"resourceloader"`
	ResourceLoaderMSIdle  string `yaml:"resourceloaderms_idle"`
	TaskLoader            string `yaml:"taskloader"`
	TaskLoaderMSPath      string `yaml:"taskloadermspath"`

	Algorithms Algorithms `yaml:"algorithms"`
}

// Load reads and parses the YAML configuration at path. A missing file or
// invalid YAML is a configuration error: wrapped with a hint and an
// InvalidConfig exit code, never panicked.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, fmt.Sprintf("reading configuration file %q", path)),
			exitcodes.InvalidConfig)
	}

	cfg := &Config{
		ResourceLoader: ResourceLoaderDefault,
		TaskLoader:     TaskLoaderDefault,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errext.WithExitCodeIfNone(
			errext.WithHint(err, fmt.Sprintf("parsing configuration file %q", path)),
			exitcodes.InvalidConfig)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loader selections are one of the recognised values
// and that the loader-specific fields they require are present.
func (c *Config) Validate() error {
	switch c.ResourceLoader {
	case ResourceLoaderDefault:
	case ResourceLoaderMS:
		if c.ResourceLoaderMSIdle == "" {
			return errext.WithExitCodeIfNone(
				errext.WithHint(fmt.Errorf("resourceloaderms_idle is required"), "resourceloader: resourceloaderms"),
				exitcodes.InvalidConfig)
		}
	default:
		return errext.WithExitCodeIfNone(
			errext.WithHint(fmt.Errorf("unknown resourceloader %q", c.ResourceLoader), "resourceloader"),
			exitcodes.InvalidConfig)
	}

	switch c.TaskLoader {
	case TaskLoaderDefault:
	case TaskLoaderMS:
		if c.TaskLoaderMSPath == "" {
			return errext.WithExitCodeIfNone(
				errext.WithHint(fmt.Errorf("taskloadermspath is required"), "taskloader: taskloaderms"),
				exitcodes.InvalidConfig)
		}
	default:
		return errext.WithExitCodeIfNone(
			errext.WithHint(fmt.Errorf("unknown taskloader %q", c.TaskLoader), "taskloader"),
			exitcodes.InvalidConfig)
	}

	return nil
}
