package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/mod/module"
	"golang.org/x/mod/semver"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

func writeModule(t *testing.T, modulePath string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	gomod := "module " + modulePath + "\n\ngo 1.21\n"
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(gomod), 0o644); err != nil {
		t.Fatal(err)
	}
	src := "package " + filepath.Base(modulePath) + "\n\ntype T struct{ A int }\n"
	if err := os.WriteFile(filepath.Join(dir, "t.go"), []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(filepath.Join(t.TempDir(), "repo"))
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	return l
}

func install(t *testing.T, l *Local, coord, modulePath string, deps ...Dependency) Artifact {
	t.Helper()
	c, err := coordinate.Parse(coord)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	art, err := l.Install(c, writeModule(t, modulePath), Descriptor{Module: modulePath, Dependencies: deps})
	if err != nil {
		t.Fatalf("Install(%s) error = %v", coord, err)
	}
	return art
}

func mustParse(t *testing.T, s string) coordinate.Coordinate {
	t.Helper()
	c, err := coordinate.Parse(s)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", s, err)
	}
	return c
}

func TestLocal_InstallAndLookup(t *testing.T) {
	l := newLocal(t)
	installed := install(t, l, "io.example:lib:1.0", "example.com/lib")

	if installed.Descriptor.Version != "v1.0.0" {
		t.Fatalf("module version = %q, want v1.0.0", installed.Descriptor.Version)
	}
	want := filepath.Join(l.Root(), "io", "example", "lib", "1.0", "lib-1.0.zip")
	if installed.File != want {
		t.Fatalf("archive = %q, want %q", installed.File, want)
	}

	got, err := l.Lookup(mustParse(t, "io.example:lib:1.0"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Descriptor.Module != "example.com/lib" {
		t.Fatalf("descriptor module = %q", got.Descriptor.Module)
	}
}

func TestLocal_LookupMissing(t *testing.T) {
	l := newLocal(t)
	_, err := l.Lookup(mustParse(t, "io.example:missing:1.0"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrNotFound", err)
	}
}

func TestLocal_InstallRejectsBadVersion(t *testing.T) {
	l := newLocal(t)
	_, err := l.Install(mustParse(t, "g:a:not-a-version"), writeModule(t, "example.com/a"), Descriptor{Module: "example.com/a"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestLocal_Versions(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:a:1.0", "example.com/a")
	install(t, l, "g:a:1.2", "example.com/a")

	got, err := l.Versions("g", "a")
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if strings.Join(got, ",") != "1.0,1.2" {
		t.Fatalf("Versions() = %v", got)
	}

	none, err := l.Versions("g", "unknown")
	if err != nil || len(none) != 0 {
		t.Fatalf("Versions(unknown) = %v, %v", none, err)
	}
}

func TestSystem_Collect_SingleArtifact(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:a:1.0", "example.com/a")

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if root.File == "" || len(root.Children) != 0 {
		t.Fatalf("unexpected root: %#v", root)
	}
	if root.Module.Path != "example.com/a" || root.Module.Version != "v1.0.0" {
		t.Fatalf("root module = %v", root.Module)
	}
}

func TestSystem_Collect_TreeAndMediation(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:d:1.0", "example.com/d")
	install(t, l, "g:d:1.5", "example.com/d")
	install(t, l, "g:c:1.0", "example.com/c", Dependency{Coordinate: "g:d:1.5"})
	install(t, l, "g:b:1.0", "example.com/b", Dependency{Coordinate: "g:c:1.0"})
	install(t, l, "g:a:1.0", "example.com/a",
		Dependency{Coordinate: "g:b:1.0"},
		Dependency{Coordinate: "g:d:1.0"},
	)

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	b, d := root.Children[0], root.Children[1]
	if b.Coordinate.Artifact != "b" || d.Coordinate.Artifact != "d" {
		t.Fatalf("unexpected children order: %s, %s", b.Coordinate, d.Coordinate)
	}
	if d.Coordinate.Version != "1.0" {
		t.Fatalf("nearest d should win, got %s", d.Coordinate.Version)
	}
	c := b.Children[0]
	if len(c.Children) != 0 {
		t.Fatalf("deeper d:1.5 should be omitted, got %v", c.Children[0].Coordinate)
	}
}

func TestSystem_Collect_CycleIsCut(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:a:1.0", "example.com/a", Dependency{Coordinate: "g:b:1.0"})
	install(t, l, "g:b:1.0", "example.com/b", Dependency{Coordinate: "g:a:1.0"})

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(root.Children) != 1 || len(root.Children[0].Children) != 0 {
		t.Fatalf("cycle not cut: %#v", root)
	}
}

func TestSystem_Collect_MissingDependencies(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:opt:1.0", "example.com/opt",
		Dependency{Coordinate: "g:absent:1.0", Optional: true},
	)
	install(t, l, "g:req:1.0", "example.com/req",
		Dependency{Coordinate: "g:absent:1.0"},
	)

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:opt:1.0"))
	if err != nil {
		t.Fatalf("Collect(opt) error = %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].File != "" || !root.Children[0].Optional {
		t.Fatalf("optional missing dependency should be a file-less node: %#v", root.Children)
	}

	_, err = NewSystem(l).Collect(context.Background(), mustParse(t, "g:req:1.0"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Collect(req) error = %v, want ErrNotFound", err)
	}

	_, err = NewSystem(l).Collect(context.Background(), mustParse(t, "g:nothing:1.0"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Collect(missing root) error = %v, want ErrNotFound", err)
	}
}

func TestSystem_Collect_TransitiveOptionalNotFollowed(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:x:1.0", "example.com/x")
	install(t, l, "g:b:1.0", "example.com/b", Dependency{Coordinate: "g:x:1.0", Optional: true})
	install(t, l, "g:a:1.0", "example.com/a", Dependency{Coordinate: "g:b:1.0"})

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(root.Children[0].Children) != 0 {
		t.Fatalf("optional edge of a transitive node should not be followed")
	}
}

func TestSystem_Collect_VersionRange(t *testing.T) {
	l := newLocal(t)
	install(t, l, "g:lib:1.1.0", "example.com/lib")
	install(t, l, "g:lib:1.4.2", "example.com/lib")
	install(t, l, "g:lib:2.0.0", "example.com/lib/v2")

	root, err := NewSystem(l).Collect(context.Background(), mustParse(t, "g:lib:^1.2"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if root.Coordinate.Version != "1.4.2" {
		t.Fatalf("pinned version = %s, want 1.4.2", root.Coordinate.Version)
	}

	_, err = NewSystem(l).Collect(context.Background(), mustParse(t, "g:lib:>=3.0"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unsatisfiable range error = %v, want ErrNotFound", err)
	}
}

func TestSystem_Collect_FetchesFromRemote(t *testing.T) {
	upstream := newLocal(t)
	install(t, upstream, "g:b:1.0", "example.com/b")
	install(t, upstream, "g:a:1.0", "example.com/a", Dependency{Coordinate: "g:b:1.0"})

	var hits atomic.Int32
	files := http.FileServer(http.Dir(upstream.Root()))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		files.ServeHTTP(w, r)
	}))
	defer srv.Close()

	local := newLocal(t)
	sys := NewSystem(local, NewRemote(srv.URL+"/"))
	root, err := sys.Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(root.Children) != 1 || root.Children[0].Module.Path != "example.com/b" {
		t.Fatalf("unexpected tree: %#v", root)
	}
	if _, err := local.Lookup(mustParse(t, "g:b:1.0")); err != nil {
		t.Fatalf("fetched artifact not stored locally: %v", err)
	}

	before := hits.Load()
	if _, err := sys.Collect(context.Background(), mustParse(t, "g:a:1.0")); err != nil {
		t.Fatalf("second Collect() error = %v", err)
	}
	if hits.Load() != before {
		t.Fatalf("second collection should be served locally")
	}
}

func TestSystem_Collect_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewSystem(newLocal(t), NewRemote(srv.URL)).Collect(context.Background(), mustParse(t, "g:a:1.0"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("server error should not look like a missing artifact: %v", err)
	}
}

func TestModuleVersionFor(t *testing.T) {
	tests := []struct {
		path    string
		version string
		want    string
	}{
		{path: "example.com/lib", version: "1", want: "v1.0.0"},
		{path: "example.com/lib", version: "1.0", want: "v1.0.0"},
		{path: "example.com/lib", version: "0.3", want: "v0.3.0"},
		{path: "example.com/lib/v2", version: "v2.3.4", want: "v2.3.4"},
		{path: "example.com/lib", version: "1.2.3-rc.1", want: "v1.2.3-rc.1"},
	}
	for _, tt := range tests {
		got, err := ModuleVersionFor(tt.path, tt.version)
		if err != nil {
			t.Fatalf("ModuleVersionFor(%q, %q) error = %v", tt.path, tt.version, err)
		}
		if got != tt.want {
			t.Fatalf("ModuleVersionFor(%q, %q) = %q, want %q", tt.path, tt.version, got, tt.want)
		}
	}
	if _, err := ModuleVersionFor("example.com/lib", "latest"); err == nil {
		t.Fatal("expected error for non-semver version")
	}
}

func TestModuleVersionFor_MajorDisagreesWithPath(t *testing.T) {
	tests := []struct {
		path      string
		version   string
		wantMajor string
	}{
		{path: "example.com/config", version: "2.0", wantMajor: "v0"},
		{path: "example.com/config", version: "10.4.1", wantMajor: "v0"},
		{path: "example.com/config/v3", version: "1.0", wantMajor: "v3"},
	}
	for _, tt := range tests {
		got, err := ModuleVersionFor(tt.path, tt.version)
		if err != nil {
			t.Fatalf("ModuleVersionFor(%q, %q) error = %v", tt.path, tt.version, err)
		}
		if !module.IsPseudoVersion(got) || semver.Major(got) != tt.wantMajor {
			t.Fatalf("ModuleVersionFor(%q, %q) = %q, want pseudo-version in %s", tt.path, tt.version, got, tt.wantMajor)
		}
		if err := module.Check(tt.path, got); err != nil {
			t.Fatalf("module.Check(%q, %q) error = %v", tt.path, got, err)
		}
	}

	a, _ := ModuleVersionFor("example.com/config", "2.0")
	b, _ := ModuleVersionFor("example.com/config", "2.1")
	if a == b {
		t.Fatalf("distinct artifact versions should map to distinct module versions, both %q", a)
	}
}

func TestLocal_InstallMajorWithoutPathSuffix(t *testing.T) {
	l := newLocal(t)
	art := install(t, l, "cfg:config:2.0", "example.com/config")
	if art.Coordinate.Version != "2.0" {
		t.Fatalf("coordinate version = %q, want 2.0", art.Coordinate.Version)
	}
	if err := module.Check(art.Descriptor.Module, art.Descriptor.Version); err != nil {
		t.Fatalf("installed module version %q is invalid: %v", art.Descriptor.Version, err)
	}

	got, err := l.Lookup(mustParse(t, "cfg:config:2.0"))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.Descriptor.Version != art.Descriptor.Version {
		t.Fatalf("descriptor version = %q, want %q", got.Descriptor.Version, art.Descriptor.Version)
	}
}
