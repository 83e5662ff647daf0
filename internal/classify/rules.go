package classify

import "go/types"

// DefaultRules returns the built-in rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		&BasicRule{},
		NewNamedRule(wellKnownValues...),
		&ByteSliceRule{},
	}
}

var wellKnownValues = []string{
	"time.Time",
	"math/big.Int",
	"math/big.Float",
	"math/big.Rat",
	"net/netip.Addr",
	"net/netip.Prefix",
	"database/sql.NullBool",
	"database/sql.NullByte",
	"database/sql.NullFloat64",
	"database/sql.NullInt16",
	"database/sql.NullInt32",
	"database/sql.NullInt64",
	"database/sql.NullString",
	"database/sql.NullTime",
}

// BasicRule: numbers, strings and booleans, including named types over them.
type BasicRule struct{}

func (r *BasicRule) Name() string { return "basic" }

func (r *BasicRule) Match(t types.Type) bool {
	b, ok := t.Underlying().(*types.Basic)
	if !ok {
		return false
	}
	info := b.Info()
	return info&(types.IsBoolean|types.IsNumeric|types.IsString) != 0
}

// ByteSliceRule: []byte and named byte slices such as json.RawMessage.
type ByteSliceRule struct{}

func (r *ByteSliceRule) Name() string { return "byte-slice" }

func (r *ByteSliceRule) Match(t types.Type) bool {
	s, ok := t.Underlying().(*types.Slice)
	if !ok {
		return false
	}
	b, ok := types.Unalias(s.Elem()).(*types.Basic)
	return ok && b.Kind() == types.Byte
}

// NamedRule matches named types by qualified name.
type NamedRule struct {
	names map[string]struct{}
}

// NewNamedRule builds a rule for "<import path>.<Name>" entries.
func NewNamedRule(names ...string) *NamedRule {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &NamedRule{names: set}
}

func (r *NamedRule) Name() string { return "named" }

func (r *NamedRule) Match(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	if obj.Pkg() == nil {
		return false
	}
	_, ok = r.names[obj.Pkg().Path()+"."+obj.Name()]
	return ok
}
