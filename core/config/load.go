package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

func configFile(path string) string {
	// Accept either the directory or the config.yaml inside it.
	if filepath.Base(path) == ConfigurationName {
		return path
	}
	return filepath.Join(path, ConfigurationName)
}

// Load loads and validates the configuration from the directory or file.
func Load(path string) (*Configuration, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs is Load on the given filesystem.
func LoadFs(fsys afero.Fs, path string) (*Configuration, error) {
	configContents, err := afero.ReadFile(fsys, configFile(path))
	if err != nil {
		return nil, err
	}
	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, err
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	out.configFs = fsys
	return &out, nil
}

// LoadOrDefault is Load, falling back to the built-in configuration when
// there is no config file.
func LoadOrDefault(fsys afero.Fs, path string) (*Configuration, error) {
	cfg, err := LoadFs(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.configFs = fsys
		return cfg, nil
	}
	return cfg, err
}

// Initialize writes the default configuration into dir unless one exists.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	return InitializeFs(afero.NewOsFs(), dir, logger)
}

// InitializeFs is Initialize on the given filesystem.
func InitializeFs(fsys afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := fsys.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	path := configFile(dir)
	switch exists, err := afero.Exists(fsys, path); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("Config %q already exists, leaving it alone.\n", path)
	default:
		logger.Printf("Writing default config to %q\n", path)
		if err := afero.WriteFile(fsys, path, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return LoadFs(fsys, dir)
}
