package resolver

import (
	"golang.org/x/mod/module"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

// Entry is one resolved artifact.
type Entry struct {
	Coordinate coordinate.Coordinate
	Module     module.Version
	File       string
}

// Classpath is the deduplicated, ordered artifact set of one request.
type Classpath struct {
	Entries []Entry
}

// Files returns the archive locations in order.
func (c Classpath) Files() []string {
	out := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.File)
	}
	return out
}

// Len returns the number of entries.
func (c Classpath) Len() int {
	return len(c.Entries)
}
