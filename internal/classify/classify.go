package classify

import "go/types"

// Classifier decides whether a type is a value the mapping side treats as a
// leaf rather than a structure to expand.
type Classifier interface {
	IsPrimitive(t types.Type) bool
}

// Rule recognises one family of value types.
type Rule interface {
	Name() string
	Match(t types.Type) bool
}

type classifierImpl struct {
	rules []Rule
}

// New builds a classifier from rules, consulted in order.
func New(rules ...Rule) Classifier {
	return &classifierImpl{rules: rules}
}

// Default returns a classifier with DefaultRules.
func Default() Classifier {
	return New(DefaultRules()...)
}

func (c *classifierImpl) IsPrimitive(t types.Type) bool {
	if t == nil {
		return false
	}
	t = types.Unalias(t)
	for _, rule := range c.rules {
		if rule.Match(t) {
			return true
		}
	}
	return false
}

// QualifiedName renders t with full import paths, e.g.
// "example.com/shop/order.Order" or "[]*time.Time".
func QualifiedName(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string {
		return p.Path()
	})
}
