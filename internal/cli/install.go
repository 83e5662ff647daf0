package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/mod/modfile"

	"github.com/seitarof/gen-inspection/internal/coordinate"
	"github.com/seitarof/gen-inspection/internal/repository"
)

// InstallConfig stores options of the install subcommand.
type InstallConfig struct {
	Repository string
	Coordinate string
	ModuleDir  string
	Module     string
	Depends    []string
	Optional   []string
	Verbose    bool
}

// ParseInstallArgs parses arguments following "install".
func ParseInstallArgs(args []string) (*InstallConfig, error) {
	cfg := &InstallConfig{}
	var dependsRaw, optionalRaw string

	fs := pflag.NewFlagSet("gen-inspection install", pflag.ContinueOnError)
	fs.StringVarP(&cfg.Repository, "repository", "r", defaultRepository(), "local artifact repository")
	fs.StringVarP(&cfg.Coordinate, "coordinate", "a", "", "coordinate to publish under")
	fs.StringVarP(&cfg.ModuleDir, "module-dir", "d", ".", "Go module directory to publish")
	fs.StringVar(&cfg.Module, "module", "", "module path (defaults to the go.mod module line)")
	fs.StringVar(&dependsRaw, "depends", "", "comma-separated dependency coordinates")
	fs.StringVar(&optionalRaw, "optional", "", "comma-separated optional dependency coordinates")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Coordinate) == "" {
		return nil, fmt.Errorf("--coordinate is required")
	}
	cfg.Depends = splitCommaList(dependsRaw)
	cfg.Optional = splitCommaList(optionalRaw)
	return cfg, nil
}

// Install publishes a module directory into the local repository.
func Install(cfg *InstallConfig) error {
	c, err := coordinate.Parse(cfg.Coordinate)
	if err != nil {
		return err
	}
	deps := make([]repository.Dependency, 0, len(cfg.Depends)+len(cfg.Optional))
	for _, raw := range cfg.Depends {
		if _, err := coordinate.Parse(raw); err != nil {
			return err
		}
		deps = append(deps, repository.Dependency{Coordinate: raw})
	}
	for _, raw := range cfg.Optional {
		if _, err := coordinate.Parse(raw); err != nil {
			return err
		}
		deps = append(deps, repository.Dependency{Coordinate: raw, Optional: true})
	}

	modulePath := cfg.Module
	if modulePath == "" {
		modulePath, err = readModulePath(cfg.ModuleDir)
		if err != nil {
			return err
		}
	}

	local, err := repository.NewLocal(cfg.Repository)
	if err != nil {
		return err
	}
	art, err := local.Install(c, cfg.ModuleDir, repository.Descriptor{Module: modulePath, Dependencies: deps})
	if err != nil {
		return err
	}
	log.Info("installed", "coordinate", c, "module", modulePath, "path", art.File)
	return nil
}

func readModulePath(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", errors.New("go.mod has no module line; pass --module")
	}
	return path, nil
}
