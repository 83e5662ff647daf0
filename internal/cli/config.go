package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

const (
	defaultOutputDir = "build/generated-sources/inspection"
	defaultPrefix    = "inspection"
)

// Config stores options for a single inspection run.
type Config struct {
	OutputDir   string       `yaml:"outputDir" validate:"required"`
	OutputFile  string       `yaml:"outputFile"`
	Prefix      string       `yaml:"prefix"`
	Artifacts   []string     `yaml:"artifacts" validate:"dive,required"`
	ClassName   string       `yaml:"className" validate:"required_with=Artifacts"`
	Inspections []Inspection `yaml:"inspections" validate:"dive"`
	Repository  string       `yaml:"repository" validate:"required"`
	Remotes     []string     `yaml:"remotes" validate:"dive,url"`
	Primitives  []string     `yaml:"primitives" validate:"dive,required"`
	FailFast    bool         `yaml:"failFast"`
	Verbose     bool         `yaml:"verbose"`
	ShowVersion bool         `yaml:"-"`
}

// Inspection is one batch entry: an artifact set and the types to inspect
// in it. Exactly one of ClassName and ClassNames must be set.
type Inspection struct {
	Artifacts  []string `yaml:"artifacts" validate:"dive,required"`
	ClassName  string   `yaml:"className" validate:"required_without=ClassNames,excluded_with=ClassNames"`
	ClassNames []string `yaml:"classNames" validate:"omitempty,min=1,dive,required"`
}

// Request is one unit of work: resolve Artifacts once, inspect every type.
type Request struct {
	Artifacts []string
	TypeNames []string
}

// ValidationError reports an unusable configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:  defaultOutputDir,
		Prefix:     defaultPrefix,
		Repository: defaultRepository(),
	}
}

// LoadFile overlays the YAML file at path onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}

// Requests lists the work of the run: the ad-hoc artifacts/className pair
// first, then the inspections in order.
func (c *Config) Requests() []Request {
	var out []Request
	if c.ClassName != "" {
		out = append(out, Request{Artifacts: c.Artifacts, TypeNames: []string{c.ClassName}})
	}
	for _, in := range c.Inspections {
		names := in.ClassNames
		if len(names) == 0 && in.ClassName != "" {
			names = []string{in.ClassName}
		}
		out = append(out, Request{Artifacts: in.Artifacts, TypeNames: names})
	}
	return out
}

// Validate checks the whole configuration, including every coordinate, so
// that nothing is resolved for a run that cannot complete. Coordinate
// syntax errors are returned as *coordinate.ParseError, everything else as
// *ValidationError.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Problems: []string{err.Error()}}
		}
		problems := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
		return &ValidationError{Problems: problems}
	}

	requests := c.Requests()
	if len(requests) == 0 {
		return &ValidationError{Problems: []string{"nothing to inspect: set className or inspections"}}
	}
	count := 0
	for i, req := range requests {
		if _, err := coordinate.ParseAll(req.Artifacts); err != nil {
			return fmt.Errorf("request %d: %w", i+1, err)
		}
		count += len(req.TypeNames)
	}
	if c.OutputFile != "" && count != 1 {
		return &ValidationError{Problems: []string{fmt.Sprintf("outputFile needs exactly one type to inspect, got %d", count)}}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required_without":
		return field + ": one of className or classNames is required"
	case "excluded_with":
		return field + ": className and classNames are mutually exclusive"
	case "required_with":
		return field + ": className is required when artifacts are set"
	case "url":
		return field + ": not a URL"
	case "min":
		return field + ": must not be empty"
	default:
		return field + ": failed " + fe.Tag()
	}
}

func defaultRepository() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".gen-inspection", "repository")
	}
	return filepath.Join(home, ".gen-inspection", "repository")
}
