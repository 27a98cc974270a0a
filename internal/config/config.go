package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from gloss.yml.
type ProjectConfig struct {
	Endpoint        string   `yaml:"endpoint,omitempty"`
	Locale          string   `yaml:"locale,omitempty"`
	TokenLimit      int      `yaml:"tokenLimit,omitempty"`
	GroupTokenLimit int      `yaml:"groupTokenLimit,omitempty"`
	MaxConcurrency  int      `yaml:"maxConcurrency,omitempty"`
	GraphPath       string   `yaml:"graphPath,omitempty"`
	CachePath       string   `yaml:"cachePath,omitempty"`
	Languages       []string `yaml:"languages,omitempty"`
	ExcludeDirs     []string `yaml:"excludeDirs,omitempty"`
	Verbose         bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read gloss.yml or gloss.yaml from the given directory.
// Returns a zero-value config (not an error) if no config file exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"gloss.yml", "gloss.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
