// Package config loads the settings of a job runtime.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const ConfigurationName = "config.yaml"

type Config struct {
	MinFd        int    `json:"min_fd" validate:"gte=3"`
	PollInterval string `json:"poll_interval" validate:"required,duration"`
	Debug        bool   `json:"debug"`
	Shell        string `json:"shell" validate:"omitempty,file"`
	Dir          string `json:"dir" validate:"omitempty,dir"`
}

// Default returns the embedded default configuration.
func Default() Config {
	var c Config
	if err := yaml.UnmarshalStrict(defaultConfigData, &c); err != nil {
		panic(fmt.Sprintf("config: invalid embedded defaults: %s", err))
	}
	return c
}

// Load reads the configuration from a directory holding a config.yaml or
// from the path of the file itself. Keys absent from the file keep their
// default values.
func Load(path string) (Config, error) {
	if filepath.Base(path) != ConfigurationName {
		path = filepath.Join(path, ConfigurationName)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	c := Default()
	if err := yaml.UnmarshalStrict(contents, &c); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})
	validate.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d > 0
	})

	return validate.Struct(c)
}

// Poll returns the poll interval as a duration. A config that passed
// Validate always has a positive interval.
func (c *Config) Poll() time.Duration {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}
