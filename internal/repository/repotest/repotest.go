// Package repotest installs the module fixtures under testdata/modules into
// throwaway repositories.
package repotest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"golang.org/x/mod/modfile"

	"github.com/seitarof/gen-inspection/internal/coordinate"
	"github.com/seitarof/gen-inspection/internal/repository"
)

// FixtureDir returns the directory of the named module fixture.
func FixtureDir(t testing.TB, name string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot locate repotest source")
	}
	dir := filepath.Join(filepath.Dir(file), "..", "..", "..", "testdata", "modules", name)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("fixture %q: %v", name, err)
	}
	return dir
}

// NewLocal returns an empty local repository in a temp dir.
func NewLocal(t testing.TB) *repository.Local {
	t.Helper()
	l, err := repository.NewLocal(filepath.Join(t.TempDir(), "repository"))
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return l
}

// Install publishes fixture under coord with the given dependency edges.
func Install(t testing.TB, l *repository.Local, coord, fixture string, deps ...repository.Dependency) repository.Artifact {
	t.Helper()
	c, err := coordinate.Parse(coord)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", coord, err)
	}
	dir := FixtureDir(t, fixture)
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		t.Fatalf("read go.mod of %s: %v", fixture, err)
	}
	art, err := l.Install(c, dir, repository.Descriptor{
		Module:       modfile.ModulePath(data),
		Dependencies: deps,
	})
	if err != nil {
		t.Fatalf("Install(%s) error = %v", coord, err)
	}
	return art
}

// Dep is shorthand for a mandatory dependency edge.
func Dep(coord string) repository.Dependency {
	return repository.Dependency{Coordinate: coord}
}

// Optional is shorthand for an optional dependency edge.
func Optional(coord string) repository.Dependency {
	return repository.Dependency{Coordinate: coord, Optional: true}
}
