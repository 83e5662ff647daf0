package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// ParseArgs parses command line arguments into Config. Values from
// --config are applied first; flags given on the command line win.
func ParseArgs(args []string) (*Config, error) {
	var (
		configFile string
		flags      Config
	)

	fs := pflag.NewFlagSet("gen-inspection", pflag.ContinueOnError)
	fs.StringVarP(&configFile, "config", "c", "", "YAML file with inspections")
	fs.StringVarP(&flags.OutputDir, "output-dir", "o", defaultOutputDir, "directory for derived artifact names")
	fs.StringVarP(&flags.OutputFile, "output-file", "f", "", "explicit artifact path (single type only)")
	fs.StringVar(&flags.Prefix, "prefix", defaultPrefix, "artifact file name prefix")
	fs.StringArrayVarP(&flags.Artifacts, "artifact", "a", nil, "artifact coordinate <group>:<artifact>[:<ext>[:<classifier>]]:<version> (repeatable)")
	fs.StringVarP(&flags.ClassName, "class-name", "n", "", "qualified type name to inspect, e.g. example.com/pkg.Type")
	fs.StringVarP(&flags.Repository, "repository", "r", defaultRepository(), "local artifact repository")
	fs.StringArrayVar(&flags.Remotes, "remote", nil, "remote repository base URL (repeatable)")
	fs.StringArrayVar(&flags.Primitives, "primitive", nil, "qualified type name treated as a value (repeatable)")
	fs.BoolVar(&flags.FailFast, "fail-fast", false, "stop at the first failing request")
	fs.BoolVar(&flags.Verbose, "verbose", false, "debug logging")
	fs.BoolVarP(&flags.ShowVersion, "version", "v", false, "show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if flags.ShowVersion {
		return &Config{ShowVersion: true}, nil
	}

	cfg := DefaultConfig()
	if configFile != "" {
		if err := LoadFile(configFile, cfg); err != nil {
			return nil, err
		}
	}

	overrides := map[string]func(){
		"output-dir":  func() { cfg.OutputDir = flags.OutputDir },
		"output-file": func() { cfg.OutputFile = flags.OutputFile },
		"prefix":      func() { cfg.Prefix = flags.Prefix },
		"artifact":    func() { cfg.Artifacts = flags.Artifacts },
		"class-name":  func() { cfg.ClassName = strings.TrimSpace(flags.ClassName) },
		"repository":  func() { cfg.Repository = flags.Repository },
		"remote":      func() { cfg.Remotes = flags.Remotes },
		"primitive":   func() { cfg.Primitives = flags.Primitives },
		"fail-fast":   func() { cfg.FailFast = flags.FailFast },
		"verbose":     func() { cfg.Verbose = flags.Verbose },
	}
	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply()
		}
	})
	return cfg, nil
}

func splitCommaList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
