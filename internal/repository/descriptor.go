package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Descriptor is the metadata stored next to an artifact archive.
type Descriptor struct {
	Module       string       `yaml:"module"`
	Version      string       `yaml:"version"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`
}

// Dependency is one declared dependency edge.
type Dependency struct {
	Coordinate string `yaml:"coordinate"`
	Optional   bool   `yaml:"optional,omitempty"`
}

// ModuleVersion returns the Go module identity the archive was packed with.
func (d Descriptor) ModuleVersion() module.Version {
	return module.Version{Path: d.Module, Version: d.Version}
}

// Validate checks the module path and version recorded in the descriptor.
func (d Descriptor) Validate() error {
	if err := module.CheckPath(d.Module); err != nil {
		return fmt.Errorf("descriptor module: %w", err)
	}
	if !semver.IsValid(d.Version) || semver.Canonical(d.Version) != d.Version {
		return fmt.Errorf("descriptor version %q is not a canonical module version", d.Version)
	}
	if err := module.Check(d.Module, d.Version); err != nil {
		return fmt.Errorf("descriptor: %w", err)
	}
	for _, dep := range d.Dependencies {
		if strings.TrimSpace(dep.Coordinate) == "" {
			return fmt.Errorf("descriptor of %s has an empty dependency coordinate", d.Module)
		}
	}
	return nil
}

// ModuleVersionFor maps an artifact version such as "1.0" onto a module
// version that modulePath can carry. When the artifact major agrees with the
// path ("1.0" for example.com/lib, "2.1" for example.com/lib/v2) the result is
// the canonical version ("v1.0.0"). Otherwise it is a pseudo-version in the
// path's major whose revision is derived from the artifact version, so
// example.com/config at "2.0" packs as v0.0.0-00010101000000-<rev>.
func ModuleVersionFor(modulePath, version string) (string, error) {
	v := strings.TrimSpace(version)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	canonical := semver.Canonical(v)
	if canonical == "" {
		return "", fmt.Errorf("version %q has no module version equivalent", version)
	}
	_, pathMajor, ok := module.SplitPathVersion(modulePath)
	if !ok {
		return "", fmt.Errorf("module path %q has a malformed major version suffix", modulePath)
	}
	if module.MatchPathMajor(canonical, pathMajor) {
		return canonical, nil
	}
	major := module.PathMajorPrefix(pathMajor)
	if major == "" {
		major = "v0"
	}
	sum := sha256.Sum256([]byte(canonical))
	return module.PseudoVersion(major, "", time.Time{}, hex.EncodeToString(sum[:6])), nil
}

func decodeDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("unmarshal descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

func encodeDescriptor(d Descriptor) ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("marshal descriptor: %w", err)
	}
	return data, nil
}
