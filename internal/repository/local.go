package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/mod/zip"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

const descriptorCacheSize = 256

// ErrNotFound reports an artifact missing from a repository.
var ErrNotFound = errors.New("artifact not found")

// Artifact is an installed archive together with its descriptor.
type Artifact struct {
	Coordinate coordinate.Coordinate
	Descriptor Descriptor
	File       string
}

// Local is a repository laid out on the filesystem:
//
//	<root>/<group as path>/<artifact>/<version>/<artifact>-<version>[-<classifier>].<ext>
//	<root>/<group as path>/<artifact>/<version>/<artifact>-<version>.yaml
type Local struct {
	root        string
	descriptors *lru.Cache[string, Descriptor]
}

// NewLocal opens (and creates if needed) a local repository rooted at root.
func NewLocal(root string) (*Local, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("repository root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create repository root: %w", err)
	}
	cache, err := lru.New[string, Descriptor](descriptorCacheSize)
	if err != nil {
		return nil, err
	}
	return &Local{root: abs, descriptors: cache}, nil
}

// Root returns the absolute repository root.
func (l *Local) Root() string {
	return l.root
}

// ArchivePath returns where the archive for c lives, whether or not it exists.
func (l *Local) ArchivePath(c coordinate.Coordinate) string {
	return filepath.Join(l.dir(c), c.Filename())
}

// Lookup returns the installed artifact for c.
func (l *Local) Lookup(c coordinate.Coordinate) (Artifact, error) {
	archive := l.ArchivePath(c)
	if _, err := os.Stat(archive); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%s: %w", c, ErrNotFound)
		}
		return Artifact{}, fmt.Errorf("stat %s: %w", archive, err)
	}
	d, err := l.descriptor(c)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Coordinate: c, Descriptor: d, File: archive}, nil
}

// Versions lists the installed versions of group:artifact.
func (l *Local) Versions(group, artifact string) ([]string, error) {
	dir := filepath.Dir(l.dir(coordinate.Coordinate{Group: group, Artifact: artifact, Version: "x"}))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list versions of %s:%s: %w", group, artifact, err)
	}
	versions := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			versions = append(versions, e.Name())
		}
	}
	return versions, nil
}

// Install packs moduleDir as the archive for c and records d next to it.
// An empty d.Version is derived from the coordinate version.
func (l *Local) Install(c coordinate.Coordinate, moduleDir string, d Descriptor) (Artifact, error) {
	if d.Version == "" {
		v, err := ModuleVersionFor(d.Module, c.Version)
		if err != nil {
			return Artifact{}, err
		}
		d.Version = v
	}
	meta, err := encodeDescriptor(d)
	if err != nil {
		return Artifact{}, err
	}

	unlock, err := l.lock(c)
	if err != nil {
		return Artifact{}, err
	}
	defer unlock()

	err = writeAtomic(l.ArchivePath(c), func(f *os.File) error {
		return zip.CreateFromDir(f, d.ModuleVersion(), moduleDir)
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("pack %s: %w", moduleDir, err)
	}
	if err := l.writeDescriptor(c, meta); err != nil {
		return Artifact{}, err
	}
	log.Debug("installed artifact", "coordinate", c, "module", d.Module)
	return Artifact{Coordinate: c, Descriptor: d, File: l.ArchivePath(c)}, nil
}

// store records a fetched descriptor and archive for c.
func (l *Local) store(c coordinate.Coordinate, meta, archive []byte) error {
	if _, err := decodeDescriptor(meta); err != nil {
		return fmt.Errorf("descriptor of %s: %w", c, err)
	}
	unlock, err := l.lock(c)
	if err != nil {
		return err
	}
	defer unlock()

	err = writeAtomic(l.ArchivePath(c), func(f *os.File) error {
		_, err := f.Write(archive)
		return err
	})
	if err != nil {
		return fmt.Errorf("store %s: %w", c, err)
	}
	return l.writeDescriptor(c, meta)
}

func (l *Local) writeDescriptor(c coordinate.Coordinate, meta []byte) error {
	path := filepath.Join(l.dir(c), c.DescriptorName())
	err := writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(meta)
		return err
	})
	if err != nil {
		return fmt.Errorf("write descriptor of %s: %w", c, err)
	}
	l.descriptors.Remove(path)
	return nil
}

func (l *Local) descriptor(c coordinate.Coordinate) (Descriptor, error) {
	path := filepath.Join(l.dir(c), c.DescriptorName())
	if d, ok := l.descriptors.Get(path); ok {
		return d, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Descriptor{}, fmt.Errorf("%s has no descriptor: %w", c, ErrNotFound)
		}
		return Descriptor{}, fmt.Errorf("read %s: %w", path, err)
	}
	d, err := decodeDescriptor(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", path, err)
	}
	l.descriptors.Add(path, d)
	return d, nil
}

func (l *Local) dir(c coordinate.Coordinate) string {
	return filepath.Join(l.root, filepath.FromSlash(c.Dir()))
}

func (l *Local) lock(c coordinate.Coordinate) (func(), error) {
	dir := l.dir(c)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	fl := flock.New(filepath.Join(dir, ".lock"))
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("lock %s: %w", dir, err)
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			log.Warn("unlock failed", "dir", dir, "err", err)
		}
	}, nil
}

func writeAtomic(path string, fill func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
