package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"
	"golang.org/x/mod/module"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

// Node is one artifact in a collected dependency tree.
type Node struct {
	Coordinate coordinate.Coordinate
	Module     module.Version
	// File is empty when the artifact could not be found locally; only
	// optional dependencies end up like that.
	File     string
	Optional bool
	Children []*Node

	deps []Dependency
}

// System collects dependency trees from a local repository, downloading
// missing artifacts from the remotes in order.
type System struct {
	local   *Local
	remotes []*Remote
}

// NewSystem creates a dependency collection system.
func NewSystem(local *Local, remotes ...*Remote) *System {
	return &System{local: local, remotes: remotes}
}

// Collect builds the dependency tree rooted at root. Versions are mediated
// nearest-first: the first version of an artifact met breadth first wins and
// later occurrences are left out of the tree.
func (s *System) Collect(ctx context.Context, root coordinate.Coordinate) (*Node, error) {
	pinned, err := s.pin(root)
	if err != nil {
		return nil, err
	}
	art, err := s.artifact(ctx, pinned)
	if err != nil {
		return nil, err
	}
	rootNode := newNode(art, false)

	selected := map[string]string{pinned.Key(): pinned.Version}
	queue := []*Node{rootNode}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, dep := range n.deps {
			// Optional edges are only honoured on the root.
			if dep.Optional && n != rootNode {
				continue
			}
			child, err := s.child(ctx, n, dep, selected)
			if err != nil {
				return nil, err
			}
			if child == nil {
				continue
			}
			n.Children = append(n.Children, child)
			if child.File != "" {
				queue = append(queue, child)
			}
		}
	}
	return rootNode, nil
}

func (s *System) child(ctx context.Context, parent *Node, dep Dependency, selected map[string]string) (*Node, error) {
	c, err := coordinate.Parse(dep.Coordinate)
	if err != nil {
		return nil, fmt.Errorf("descriptor of %s: %w", parent.Coordinate, err)
	}
	c, err = s.pin(c)
	if err != nil {
		if dep.Optional && errors.Is(err, ErrNotFound) {
			log.Warn("optional dependency not available", "dependency", c, "parent", parent.Coordinate)
			return &Node{Coordinate: c, Optional: true}, nil
		}
		return nil, fmt.Errorf("dependency of %s: %w", parent.Coordinate, err)
	}
	if v, ok := selected[c.Key()]; ok {
		if v != c.Version {
			log.Debug("version omitted for conflict", "dependency", c, "selected", v, "parent", parent.Coordinate)
		}
		return nil, nil
	}
	selected[c.Key()] = c.Version

	art, err := s.artifact(ctx, c)
	if err != nil {
		if dep.Optional && errors.Is(err, ErrNotFound) {
			log.Warn("optional dependency not available", "dependency", c, "parent", parent.Coordinate)
			return &Node{Coordinate: c, Optional: true}, nil
		}
		return nil, fmt.Errorf("dependency of %s: %w", parent.Coordinate, err)
	}
	return newNode(art, dep.Optional), nil
}

// artifact returns c from the local repository, fetching it from the
// remotes when it is missing.
func (s *System) artifact(ctx context.Context, c coordinate.Coordinate) (Artifact, error) {
	art, err := s.local.Lookup(c)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return art, err
	}
	for _, r := range s.remotes {
		ferr := r.Fetch(ctx, c, s.local)
		if errors.Is(ferr, ErrNotFound) {
			continue
		}
		if ferr != nil {
			return Artifact{}, ferr
		}
		return s.local.Lookup(c)
	}
	return Artifact{}, err
}

// pin replaces a version constraint with the highest installed version that
// satisfies it. Exact versions and anything that is not a constraint pass
// through unchanged.
func (s *System) pin(c coordinate.Coordinate) (coordinate.Coordinate, error) {
	if _, err := semver.NewVersion(c.Version); err == nil {
		return c, nil
	}
	constraint, err := semver.NewConstraint(c.Version)
	if err != nil {
		return c, nil
	}
	installed, err := s.local.Versions(c.Group, c.Artifact)
	if err != nil {
		return c, err
	}
	var best *semver.Version
	bestRaw := ""
	for _, raw := range installed {
		v, err := semver.NewVersion(raw)
		if err != nil || !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	if best == nil {
		return c, fmt.Errorf("no installed version of %s:%s satisfies %q: %w", c.Group, c.Artifact, c.Version, ErrNotFound)
	}
	log.Debug("pinned version range", "coordinate", c, "version", bestRaw)
	return c.WithVersion(bestRaw), nil
}

func newNode(art Artifact, optional bool) *Node {
	return &Node{
		Coordinate: art.Coordinate,
		Module:     art.Descriptor.ModuleVersion(),
		File:       art.File,
		Optional:   optional,
		deps:       art.Descriptor.Dependencies,
	}
}
