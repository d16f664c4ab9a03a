// Package config loads the job server's YAML configuration file, following
// the teacher's struct-with-yaml-tags approach, with defaults applied
// whenever a field (or the whole file) is absent.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the complete server configuration.
type Config struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Dataset struct {
		Path string `yaml:"path"`
	} `yaml:"dataset"`

	Results struct {
		Dir string `yaml:"dir"`
	} `yaml:"results"`

	Log struct {
		Dir string `yaml:"dir"`
	} `yaml:"log"`

	Worker struct {
		Count int `yaml:"count"`
	} `yaml:"worker"`
}

// tpNumOfThreadsEnv is the environment variable the reference TaskRunner
// reads to override the default worker count.
const tpNumOfThreadsEnv = "TP_NUM_OF_THREADS"

func defaults() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8080"
	cfg.Dataset.Path = "nutrition_activity_obesity_usa_subset.csv"
	cfg.Results.Dir = "results"
	cfg.Log.Dir = "."
	cfg.Worker.Count = runtime.NumCPU()
	return cfg
}

// Load reads the YAML file at path and overlays it onto the default
// configuration. An empty path returns the defaults unmodified. After the
// file is applied, TP_NUM_OF_THREADS is consulted and, if set to a
// positive integer, overrides worker.count — this is the same override
// the reference TaskRunner honors directly from the environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Worker.Count <= 0 {
		cfg.Worker.Count = runtime.NumCPU()
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	raw, ok := os.LookupEnv(tpNumOfThreadsEnv)
	if !ok {
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return
	}
	cfg.Worker.Count = n
}
