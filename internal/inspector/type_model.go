package inspector

// TypeModel is the structural shape of one struct type.
type TypeModel struct {
	Name   string       `json:"name"`
	Fields []FieldModel `json:"fields"`
}

// FieldModel describes one field, or the key/element of a collection.
// Key and Element descriptions carry no Name.
type FieldModel struct {
	Name            string         `json:"name,omitempty"`
	Path            string         `json:"path,omitempty"`
	JSONName        string         `json:"jsonName,omitempty"`
	TypeName        string         `json:"typeName"`
	Primitive       bool           `json:"primitive"`
	CollectionKind  CollectionKind `json:"collectionType"`
	ArrayDimensions int            `json:"arrayDimensions,omitempty"`
	ArraySize       int64          `json:"arraySize,omitempty"`
	Opaque          bool           `json:"opaque,omitempty"`
	Key             *FieldModel    `json:"key,omitempty"`
	Element         *FieldModel    `json:"element,omitempty"`
	Nested          *TypeModel     `json:"nested,omitempty"`
	// BackReference names a type already being expanded further up; the
	// structure is not repeated.
	BackReference string `json:"backReference,omitempty"`
}

// CollectionKind classifies container fields.
type CollectionKind string

const (
	CollectionNone  CollectionKind = "NONE"
	CollectionList  CollectionKind = "LIST"
	CollectionMap   CollectionKind = "MAP"
	CollectionArray CollectionKind = "ARRAY"
)

// Field returns the field called name, or nil.
func (m *TypeModel) Field(name string) *FieldModel {
	if m == nil {
		return nil
	}
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}
