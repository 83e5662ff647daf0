package resolver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/seitarof/gen-inspection/internal/coordinate"
	"github.com/seitarof/gen-inspection/internal/repository"
)

// Graph collects the dependency tree of one root artifact.
type Graph interface {
	Collect(ctx context.Context, root coordinate.Coordinate) (*repository.Node, error)
}

// Resolver turns coordinate strings into a classpath.
type Resolver interface {
	Resolve(ctx context.Context, coordinates []string) (Classpath, error)
}

// ResolutionError wraps a failure to collect the dependencies of Root.
type ResolutionError struct {
	Root string
	Err  error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve dependencies of %s: %v", e.Root, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

type resolverImpl struct {
	graph Graph
}

// New builds a resolver backed by graph.
func New(graph Graph) Resolver {
	return &resolverImpl{graph: graph}
}

// Resolve parses every coordinate before touching the graph, then appends
// the preorder of each tree, keeping the first occurrence of every file.
func (r *resolverImpl) Resolve(ctx context.Context, coordinates []string) (Classpath, error) {
	roots, err := coordinate.ParseAll(coordinates)
	if err != nil {
		return Classpath{}, err
	}

	cp := Classpath{Entries: make([]Entry, 0, len(roots))}
	seen := map[string]bool{}
	for _, root := range roots {
		log.Debug("resolving dependencies", "artifact", root)
		tree, err := r.graph.Collect(ctx, root)
		if err != nil {
			return Classpath{}, &ResolutionError{Root: root.String(), Err: err}
		}
		for _, n := range preorder(tree) {
			if n.File == "" {
				log.Debug("skipped unresolved dependency", "dependency", n.Coordinate, "artifact", root)
				continue
			}
			key := fileKey(n.File)
			if seen[key] {
				continue
			}
			seen[key] = true
			log.Debug("found dependency", "dependency", n.Coordinate, "artifact", root)
			cp.Entries = append(cp.Entries, Entry{Coordinate: n.Coordinate, Module: n.Module, File: n.File})
		}
	}
	return cp, nil
}

// preorder lists tree nodes parent-first, children left to right.
func preorder(root *repository.Node) []*repository.Node {
	if root == nil {
		return nil
	}
	var out []*repository.Node
	stack := []*repository.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

func fileKey(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return filepath.Clean(file)
}
