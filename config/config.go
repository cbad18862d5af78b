// Package config loads training settings from a YAML file, applies SVM_
// prefixed environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"limhan.info/svm-go/svm"
)

// EnvPrefix is the prefix of the environment overrides, e.g. SVM_C=10
const EnvPrefix = "SVM"

// ErrInvalid wraps every load and validation failure
var ErrInvalid = errors.New("config: invalid configuration")

// Config describes one training run
type Config struct {
	Kernel   string  `yaml:"kernel"    envconfig:"KERNEL"    validate:"required,oneof=linear polynomial poly rbf sigmoid"`
	C        float64 `yaml:"c"         envconfig:"C"         validate:"gt=0"`
	Tol      float64 `yaml:"tol"       envconfig:"TOL"       validate:"gt=0"`
	MaxSteps uint    `yaml:"max_steps" envconfig:"MAX_STEPS"`
	Seed     uint64  `yaml:"seed"      envconfig:"SEED"`
	Degree   int     `yaml:"degree"    envconfig:"DEGREE"    validate:"min=1"`
	Gamma    float64 `yaml:"gamma"     envconfig:"GAMMA"     validate:"required_unless=Kernel linear"`
	Coef0    float64 `yaml:"coef0"     envconfig:"COEF0"`
	Folds    int     `yaml:"folds"     envconfig:"FOLDS"     validate:"omitempty,min=2"`
	Format   string  `yaml:"format"    envconfig:"FORMAT"    validate:"oneof=libsvm csv"`
	Scale    bool    `yaml:"scale"     envconfig:"SCALE"`
}

// Default is a linear kernel with C=1, tol=1e-3, 1000 passes and seed 16
func Default() *Config {
	return &Config{
		Kernel:   "linear",
		C:        svm.DefaultC,
		Tol:      svm.DefaultTol,
		MaxSteps: svm.DefaultMaxSteps,
		Seed:     svm.DefaultSeed,
		Degree:   svm.DefaultDegree,
		Format:   svm.FormatLibSVM,
	}
}

// Load reads the YAML file at path on top of Default, then the environment
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %v: %w", path, err, ErrInvalid)
	}
	return Parse(buf)
}

// Parse is Load for an in-memory document. Unknown keys are rejected.
func Parse(buf []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(buf))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %v: %w", err, ErrInvalid)
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment: %v: %w", err, ErrInvalid)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and then the kernel parameters
func (c *Config) Validate() error {
	c.Kernel = strings.ToLower(strings.TrimSpace(c.Kernel))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %v: %w", err, ErrInvalid)
	}
	if _, err := c.ToParameter(); err != nil {
		return err
	}
	return nil
}

// ToParameter converts the configuration into validated training parameters
func (c *Config) ToParameter() (*svm.Parameter, error) {
	kernelType := svm.GetKernelTypeByName(c.Kernel)
	if kernelType == nil {
		return nil, fmt.Errorf("unknown kernel %q: %w", c.Kernel, ErrInvalid)
	}

	param := svm.NewParameter(kernelType, c.C, c.Tol, c.MaxSteps, c.Seed)
	param.Degree = c.Degree
	param.Gamma = c.Gamma
	param.Coef0 = c.Coef0
	if err := param.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	return param, nil
}
