package inspector

import (
	"go/types"
	"reflect"
	"sort"
	"strings"
)

// structField is one field reachable through a struct, promoted or direct.
type structField struct {
	Name       string
	AccessPath string
	JSONName   string
	Type       types.Type
}

type fieldCandidate struct {
	field     structField
	depth     int
	order     int
	ambiguous bool
}

// flattenFields lists the exported fields of st with promoted fields of
// embedded structs first, then st's own fields, each in declaration order.
func flattenFields(st *types.Struct) []structField {
	candidates := map[string]fieldCandidate{}
	order := 0
	collectFlattenedFields(st, nil, 0, map[*types.Struct]bool{}, candidates, &order)

	sorted := make([]fieldCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ambiguous {
			continue
		}
		sorted = append(sorted, cand)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].order < sorted[j].order
	})

	fields := make([]structField, 0, len(sorted))
	for _, cand := range sorted {
		fields = append(fields, cand.field)
	}
	return fields
}

func collectFlattenedFields(
	st *types.Struct,
	prefix []string,
	depth int,
	embedding map[*types.Struct]bool,
	out map[string]fieldCandidate,
	order *int,
) {
	embedding[st] = true
	defer delete(embedding, st)

	// Promoted fields first.
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		embeddedStruct := resolveEmbeddedStruct(f.Type())
		if embeddedStruct == nil || embedding[embeddedStruct] {
			continue
		}
		collectFlattenedFields(embeddedStruct, appendPath(prefix, f.Name()), depth+1, embedding, out, order)
	}

	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if f.Embedded() && resolveEmbeddedStruct(f.Type()) != nil {
			continue
		}
		if !f.Exported() {
			continue
		}
		jsonName, skip := jsonTagName(st.Tag(i))
		if skip {
			continue
		}
		field := structField{
			Name:       f.Name(),
			AccessPath: buildAccessPath(prefix, f.Name()),
			JSONName:   jsonName,
			Type:       f.Type(),
		}
		addCandidate(out, field, depth, order)
	}
}

func addCandidate(out map[string]fieldCandidate, field structField, depth int, order *int) {
	cand, exists := out[field.Name]
	if !exists {
		out[field.Name] = fieldCandidate{field: field, depth: depth, order: *order}
		*order = *order + 1
		return
	}

	if depth < cand.depth {
		out[field.Name] = fieldCandidate{field: field, depth: depth, order: *order}
		*order = *order + 1
		return
	}
	if depth > cand.depth {
		return
	}

	if cand.field.AccessPath != field.AccessPath {
		cand.ambiguous = true
		out[field.Name] = cand
	}
}

func jsonTagName(tag string) (name string, skip bool) {
	v, ok := reflect.StructTag(tag).Lookup("json")
	if !ok {
		return "", false
	}
	name, _, _ = strings.Cut(v, ",")
	if name == "-" && v == "-" {
		return "", true
	}
	return name, false
}

func appendPath(prefix []string, part string) []string {
	next := make([]string, 0, len(prefix)+1)
	next = append(next, prefix...)
	next = append(next, part)
	return next
}

func buildAccessPath(prefix []string, fieldName string) string {
	if len(prefix) == 0 {
		return fieldName
	}
	return strings.Join(appendPath(prefix, fieldName), ".")
}

func resolveEmbeddedStruct(t types.Type) *types.Struct {
	switch v := t.(type) {
	case *types.Alias:
		return resolveEmbeddedStruct(v.Rhs())
	case *types.Named:
		if st, ok := v.Underlying().(*types.Struct); ok {
			return st
		}
	case *types.Pointer:
		return resolveEmbeddedStruct(v.Elem())
	}
	return nil
}
