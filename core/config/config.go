package config

import (
	_ "embed"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	AppDirName        = "lish"
)

type Configuration struct {
	configFs afero.Fs

	Prompt     string `json:"prompt"`
	SexyPrompt string `json:"sexy_prompt" validate:"required"`

	History History `json:"history"`

	EventLog string `json:"event_log"`
}

// History configures the shared history ring.
type History struct {
	Capacity   int    `json:"capacity" validate:"gte=1,lte=1024"`
	LineLength int    `json:"line_length" validate:"gte=16,lte=4096"`
	File       string `json:"file" validate:"required"`
	LockDir    string `json:"lock_dir"`
	IPCKey     int    `json:"ipc_key" validate:"gt=0"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Fs is the filesystem files named by the configuration live on.
func (c *Configuration) Fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewOsFs()
	}
	return c.configFs
}

// SetFs replaces the filesystem, tests use an in-memory one.
func (c *Configuration) SetFs(fs afero.Fs) {
	c.configFs = fs
}

// HistoryPath is the history file for the user with the given home. It is
// empty when the file is relative and home is unknown.
func (c *Configuration) HistoryPath(home string) string {
	if filepath.IsAbs(c.History.File) {
		return c.History.File
	}
	if home == "" {
		return ""
	}
	return filepath.Join(home, c.History.File)
}

// LockDir is where the history lock files are created.
func (c *Configuration) LockDir() string {
	if c.History.LockDir == "" {
		return os.TempDir()
	}
	return c.History.LockDir
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	return c.Fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// DefaultDir is the configuration directory used when none is given.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, AppDirName)
}

// Default returns the built-in configuration.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
