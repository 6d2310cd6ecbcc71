package schema

// FieldType is the JSON type marker of a field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeNumber  FieldType = "number"
	TypeInteger FieldType = "integer"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// Field describes a single value the model should extract from a poster.
type Field struct {
	Name string    `mapstructure:"name" yaml:"name,omitempty"`
	Type FieldType `mapstructure:"type" yaml:"type"`

	// Description is passed through to the JSON Schema so the model can use it as guidance.
	Description string `mapstructure:"description" yaml:"description,omitempty"`

	// Optional fields are left out of the parent object's "required" list.
	Optional bool `mapstructure:"optional" yaml:"optional,omitempty"`

	// Items describes array elements (TypeArray only). Its Name is ignored.
	Items *Field `mapstructure:"items" yaml:"items,omitempty"`

	// Fields describes object members in order (TypeObject only).
	Fields []Field `mapstructure:"fields" yaml:"fields,omitempty"`
}

// Definition is a named extraction schema. The top level is always an object.
type Definition struct {
	Name   string  `mapstructure:"name" yaml:"name"`
	Fields []Field `mapstructure:"fields" yaml:"fields"`
}

// String returns a string field with a description.
func String(name, description string) Field {
	return Field{Name: name, Type: TypeString, Description: description}
}

// Boolean returns a boolean field with a description.
func Boolean(name, description string) Field {
	return Field{Name: name, Type: TypeBoolean, Description: description}
}

// ArrayOf returns an array field whose elements are described by items.
func ArrayOf(name string, items Field) Field {
	return Field{Name: name, Type: TypeArray, Items: &items}
}

// Object returns an object field with the given members.
func Object(name string, fields ...Field) Field {
	return Field{Name: name, Type: TypeObject, Fields: fields}
}

// clone returns a deep copy that shares no slices or pointers with d.
func (d Definition) clone() Definition {
	return Definition{Name: d.Name, Fields: cloneFields(d.Fields)}
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f.clone()
	}
	return out
}

func (f Field) clone() Field {
	c := f
	if f.Items != nil {
		items := f.Items.clone()
		c.Items = &items
	}
	c.Fields = cloneFields(f.Fields)
	return c
}
