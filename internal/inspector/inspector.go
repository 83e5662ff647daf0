package inspector

import (
	"context"
	"fmt"
	"go/types"

	"github.com/charmbracelet/log"

	"github.com/seitarof/gen-inspection/internal/classify"
)

// TypeLoader resolves qualified type names inside one loading scope.
type TypeLoader interface {
	Lookup(ctx context.Context, typeName string) (*types.TypeName, error)
}

// Inspector derives structural models from loaded types.
type Inspector interface {
	Inspect(ctx context.Context, loader TypeLoader, typeName string) (*TypeModel, error)
}

type inspectorImpl struct {
	classifier classify.Classifier
}

// New returns an inspector using c to detect value types. A nil c means
// classify.Default().
func New(c classify.Classifier) Inspector {
	if c == nil {
		c = classify.Default()
	}
	return &inspectorImpl{classifier: c}
}

func (i *inspectorImpl) Inspect(ctx context.Context, loader TypeLoader, typeName string) (*TypeModel, error) {
	obj, err := loader.Lookup(ctx, typeName)
	if err != nil {
		return nil, err
	}

	root := types.Unalias(obj.Type())
	st, ok := extractStructType(root)
	if !ok {
		return nil, fmt.Errorf("%q is not a struct type", typeName)
	}

	w := &walker{classifier: i.classifier, active: map[string]bool{}}
	return w.typeModel(classify.QualifiedName(root), st), nil
}

// walker carries the types currently being expanded on the recursion path.
type walker struct {
	classifier classify.Classifier
	active     map[string]bool
}

func (w *walker) typeModel(name string, st *types.Struct) *TypeModel {
	w.active[name] = true
	defer delete(w.active, name)

	fields := flattenFields(st)
	model := &TypeModel{Name: name, Fields: make([]FieldModel, 0, len(fields))}
	for _, f := range fields {
		fm, ok := w.describe(f.Type)
		if !ok {
			log.Debug("field skipped", "type", name, "field", f.Name, "fieldType", classify.QualifiedName(f.Type))
			continue
		}
		fm.Name = f.Name
		fm.Path = f.AccessPath
		fm.JSONName = f.JSONName
		model.Fields = append(model.Fields, fm)
	}
	return model
}

// describe classifies t. It reports false for types that carry no data
// (funcs, channels, unsafe pointers). A named type already being expanded
// further up is reported as a back-reference, whatever its underlying kind.
func (w *walker) describe(t types.Type) (FieldModel, bool) {
	fm := FieldModel{TypeName: classify.QualifiedName(t), CollectionKind: CollectionNone}
	base := deref(t)
	if w.classifier.IsPrimitive(base) {
		fm.Primitive = true
		return fm, true
	}

	if named, ok := base.(*types.Named); ok {
		name := classify.QualifiedName(named)
		if w.active[name] {
			fm.BackReference = name
			return fm, true
		}
		w.active[name] = true
		defer delete(w.active, name)
	}

	switch under := base.Underlying().(type) {
	case *types.Array:
		dims, elem := w.arrayShape(under)
		el, ok := w.describe(elem)
		if !ok {
			return fm, false
		}
		fm.CollectionKind = CollectionArray
		fm.ArrayDimensions = dims
		fm.ArraySize = under.Len()
		fm.Element = &el
	case *types.Slice:
		el, ok := w.describe(under.Elem())
		if !ok {
			return fm, false
		}
		fm.CollectionKind = CollectionList
		fm.Element = &el
	case *types.Map:
		key, ok := w.describe(under.Key())
		if !ok {
			return fm, false
		}
		val, ok := w.describe(under.Elem())
		if !ok {
			return fm, false
		}
		fm.CollectionKind = CollectionMap
		fm.Key = &key
		fm.Element = &val
	case *types.Struct:
		fm.Nested = w.typeModel(classify.QualifiedName(base), under)
	case *types.Interface:
		fm.Opaque = true
	default:
		return fm, false
	}
	return fm, true
}

// arrayShape folds nested arrays into a dimension count and returns the
// innermost element type. Folding stops at a named type that is already on
// the expansion path or was folded through before, so the caller reports it
// as a back-reference.
func (w *walker) arrayShape(a *types.Array) (int, types.Type) {
	dims := 0
	seen := map[string]bool{}
	for {
		dims++
		elem := a.Elem()
		inner := deref(elem)
		if w.classifier.IsPrimitive(inner) {
			return dims, elem
		}
		next, ok := inner.Underlying().(*types.Array)
		if !ok {
			return dims, elem
		}
		if named, ok := inner.(*types.Named); ok {
			name := classify.QualifiedName(named)
			if w.active[name] || seen[name] {
				return dims, elem
			}
			seen[name] = true
		}
		a = next
	}
}

func deref(t types.Type) types.Type {
	for {
		t = types.Unalias(t)
		p, ok := t.(*types.Pointer)
		if !ok {
			return t
		}
		t = p.Elem()
	}
}

func extractStructType(t types.Type) (*types.Struct, bool) {
	switch v := t.(type) {
	case *types.Alias:
		return extractStructType(v.Rhs())
	case *types.Named:
		return extractStructType(v.Underlying())
	case *types.Struct:
		return v, true
	default:
		return nil, false
	}
}
