package coordinate

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// DefaultExtension is used when a coordinate does not name an extension.
const DefaultExtension = "zip"

var pattern = regexp.MustCompile(`^([^: ]+):([^: ]+)(:([^: ]*)(:([^: ]+))?)?:([^: ]+)$`)

// Coordinate identifies one published artifact.
type Coordinate struct {
	Group      string
	Artifact   string
	Extension  string
	Classifier string
	Version    string
}

// ParseError reports a malformed coordinate string.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad artifact coordinate %q: %s", e.Input, e.Reason)
}

// Parse reads <group>:<artifact>[:<extension>[:<classifier>]]:<version>.
func Parse(s string) (Coordinate, error) {
	raw := strings.TrimSpace(s)
	n := strings.Count(raw, ":") + 1
	if n < 3 || n > 5 {
		return Coordinate{}, &ParseError{Input: s, Reason: fmt.Sprintf("expected 3 to 5 fields, got %d", n)}
	}
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return Coordinate{}, &ParseError{Input: s, Reason: "expected <group>:<artifact>[:<extension>[:<classifier>]]:<version>"}
	}
	c := Coordinate{
		Group:      m[1],
		Artifact:   m[2],
		Extension:  m[4],
		Classifier: m[6],
		Version:    m[7],
	}
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	return c, nil
}

// ParseAll parses every entry, stopping at the first malformed one.
func ParseAll(raw []string) ([]Coordinate, error) {
	out := make([]Coordinate, 0, len(raw))
	for _, s := range raw {
		c, err := Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// String renders the canonical coordinate form.
func (c Coordinate) String() string {
	var b strings.Builder
	b.WriteString(c.Group)
	b.WriteString(":")
	b.WriteString(c.Artifact)
	if c.Classifier != "" || (c.Extension != "" && c.Extension != DefaultExtension) {
		b.WriteString(":")
		b.WriteString(c.ext())
		if c.Classifier != "" {
			b.WriteString(":")
			b.WriteString(c.Classifier)
		}
	}
	b.WriteString(":")
	b.WriteString(c.Version)
	return b.String()
}

// Key is the version-less identity used to mediate version conflicts.
func (c Coordinate) Key() string {
	key := c.Group + ":" + c.Artifact + ":" + c.ext()
	if c.Classifier != "" {
		key += ":" + c.Classifier
	}
	return key
}

// WithVersion returns a copy of c pinned to version.
func (c Coordinate) WithVersion(version string) Coordinate {
	c.Version = version
	return c
}

// Dir is the repository-relative directory holding the artifact.
func (c Coordinate) Dir() string {
	return path.Join(strings.ReplaceAll(c.Group, ".", "/"), c.Artifact, c.Version)
}

// Filename is the archive file name inside Dir.
func (c Coordinate) Filename() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.ext()
}

// DescriptorName is the descriptor file name inside Dir.
func (c Coordinate) DescriptorName() string {
	return c.Artifact + "-" + c.Version + ".yaml"
}

func (c Coordinate) ext() string {
	if c.Extension == "" {
		return DefaultExtension
	}
	return c.Extension
}
