// Package scope loads Go types from exactly one resolved artifact set.
//
// A Scope is a throwaway module workspace: its go.mod requires and replaces
// every module of the classpath, the module proxy is disabled and the module
// cache is private to the scope, so a lookup can only see the classpath and
// the standard library of the running toolchain.
package scope

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"go/types"
	"go/version"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/mod/modfile"
	"golang.org/x/mod/zip"
	"golang.org/x/tools/go/packages"

	"github.com/seitarof/gen-inspection/internal/resolver"
)

const (
	workspaceModule   = "gen-inspection.local/scope"
	fallbackGoVersion = "1.21"
	loadMode          = packages.NeedName | packages.NeedFiles | packages.NeedTypes | packages.NeedModule
)

// Options tunes scope construction.
type Options struct {
	// TempDir is the parent of the workspace; the system temp dir when empty.
	TempDir string
	// GoVersion is the go directive of the workspace go.mod; the language
	// version of the running toolchain when empty.
	GoVersion string
}

// TypeNotFoundError reports a type name the scope cannot resolve.
type TypeNotFoundError struct {
	TypeName string
	Reason   string
	Err      error
}

func (e *TypeNotFoundError) Error() string {
	msg := fmt.Sprintf("type %q not found: %s", e.TypeName, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TypeNotFoundError) Unwrap() error { return e.Err }

// Scope resolves type names against one classpath.
type Scope struct {
	dir    string
	env    []string
	cache  map[string]*packages.Package
	closed bool
}

// Open builds a workspace for cp. The caller must Close it.
func Open(ctx context.Context, cp resolver.Classpath, opts Options) (s *Scope, err error) {
	dir, err := os.MkdirTemp(opts.TempDir, "gen-inspection-scope-*")
	if err != nil {
		return nil, fmt.Errorf("create scope dir: %w", err)
	}
	if abs, aerr := filepath.Abs(dir); aerr == nil {
		dir = abs
	}
	defer func() {
		if err != nil {
			removeAll(dir)
		}
	}()

	mf := &modfile.File{}
	if err := mf.AddModuleStmt(workspaceModule); err != nil {
		return nil, err
	}
	goVersion := opts.GoVersion
	if goVersion == "" {
		goVersion = defaultGoVersion()
	}
	if err := mf.AddGoStmt(goVersion); err != nil {
		return nil, err
	}

	seen := map[string]string{}
	for i, e := range cp.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if prev, ok := seen[e.Module.Path]; ok {
			log.Warn("module provided twice, keeping first", "module", e.Module.Path, "kept", prev, "dropped", e.Coordinate)
			continue
		}
		seen[e.Module.Path] = e.Coordinate.String()

		target := filepath.Join(dir, "modules", strconv.Itoa(i))
		if err := zip.Unzip(target, e.Module, e.File); err != nil {
			return nil, fmt.Errorf("extract %s: %w", e.Coordinate, err)
		}
		if err := mf.AddRequire(e.Module.Path, e.Module.Version); err != nil {
			return nil, err
		}
		if err := mf.AddReplace(e.Module.Path, "", target, ""); err != nil {
			return nil, err
		}
	}

	data, err := mf.Format()
	if err != nil {
		return nil, fmt.Errorf("format scope go.mod: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), data, 0o644); err != nil {
		return nil, fmt.Errorf("write scope go.mod: %w", err)
	}

	env := append(os.Environ(),
		"GO111MODULE=on",
		"GOFLAGS=-mod=mod",
		"GOPROXY=off",
		"GOSUMDB=off",
		"GOWORK=off",
		"GOTOOLCHAIN=local",
		"GOMODCACHE="+filepath.Join(dir, "modcache"),
	)
	log.Debug("opened scope", "dir", dir, "modules", len(seen))
	return &Scope{dir: dir, env: env, cache: map[string]*packages.Package{}}, nil
}

// defaultGoVersion is the language version of the toolchain this binary was
// built with, e.g. "1.26" for go1.26.1. Development toolchains report no
// language version and get fallbackGoVersion.
func defaultGoVersion() string {
	lang := version.Lang(runtime.Version())
	if lang == "" {
		return fallbackGoVersion
	}
	return strings.TrimPrefix(lang, "go")
}

// With opens a scope for cp, hands it to fn and always closes it. fn's error
// is returned as is unless closing fails too, in which case both are joined.
func With(ctx context.Context, cp resolver.Classpath, opts Options, fn func(*Scope) error) (err error) {
	s, err := Open(ctx, cp, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(s)
}

// Dir returns the workspace directory.
func (s *Scope) Dir() string {
	return s.dir
}

// Lookup resolves "<import path>.<Name>" to its type name object.
func (s *Scope) Lookup(ctx context.Context, typeName string) (*types.TypeName, error) {
	if s.closed {
		return nil, errors.New("scope is closed")
	}
	pkgPath, name, ok := splitTypeName(typeName)
	if !ok {
		return nil, &TypeNotFoundError{TypeName: typeName, Reason: "expected <import path>.<Name>"}
	}

	pkg, err := s.load(ctx, typeName, pkgPath)
	if err != nil {
		return nil, err
	}
	obj, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName)
	if !ok {
		return nil, &TypeNotFoundError{TypeName: typeName, Reason: fmt.Sprintf("package %q declares no type %s", pkgPath, name)}
	}
	return obj, nil
}

// Close removes the workspace. Closing twice is a no-op.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache = nil
	if err := removeAll(s.dir); err != nil {
		return fmt.Errorf("remove scope dir: %w", err)
	}
	log.Debug("closed scope", "dir", s.dir)
	return nil
}

func (s *Scope) load(ctx context.Context, typeName, pkgPath string) (*packages.Package, error) {
	if cached, ok := s.cache[pkgPath]; ok {
		return cached, nil
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     s.dir,
		Env:     s.env,
	}
	pkgs, err := packages.Load(cfg, pkgPath)
	if err != nil {
		return nil, fmt.Errorf("load package %q: %w", pkgPath, err)
	}
	if len(pkgs) == 0 {
		return nil, &TypeNotFoundError{TypeName: typeName, Reason: fmt.Sprintf("package %q not found", pkgPath)}
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		if len(pkg.GoFiles) == 0 || pkg.Types == nil {
			return nil, &TypeNotFoundError{
				TypeName: typeName,
				Reason:   fmt.Sprintf("package %q is not in scope", pkgPath),
				Err:      pkg.Errors[0],
			}
		}
		return nil, fmt.Errorf("package %q has errors: %w", pkgPath, pkg.Errors[0])
	}
	if pkg.Types == nil || pkg.Types.Scope() == nil {
		return nil, fmt.Errorf("type info unavailable for package %q", pkgPath)
	}
	s.cache[pkgPath] = pkg
	return pkg, nil
}

func splitTypeName(typeName string) (pkgPath string, name string, ok bool) {
	i := strings.LastIndex(typeName, ".")
	if i <= 0 || i == len(typeName)-1 {
		return "", "", false
	}
	pkgPath, name = typeName[:i], typeName[i+1:]
	if !token.IsIdentifier(name) || strings.HasSuffix(pkgPath, "/") || isPattern(pkgPath) {
		return "", "", false
	}
	return pkgPath, name, true
}

// isPattern reports package paths the go command would expand to several
// packages (or read as a flag) instead of loading exactly one.
func isPattern(pkgPath string) bool {
	switch pkgPath {
	case "all", "std", "cmd", "tool", "work":
		return true
	}
	return strings.Contains(pkgPath, "...") || strings.HasPrefix(pkgPath, "-")
}

// removeAll also clears read-only directories left behind by the go command.
func removeAll(dir string) error {
	if err := os.RemoveAll(dir); err == nil {
		return nil
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			_ = os.Chmod(path, 0o755)
		}
		return nil
	})
	return os.RemoveAll(dir)
}
