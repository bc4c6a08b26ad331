package blocks

import "encoding/json"

type FieldDefinition struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	Default  any
}

type fieldJSON struct {
	Name      string            `json:"name"`
	Label     string            `json:"label"`
	Type      string            `json:"type"`
	Required  bool              `json:"required,omitempty"`
	Default   any               `json:"default,omitempty"`
	MaxLength int               `json:"max_length,omitempty"`
	Options   []Option          `json:"options,omitempty"`
	Fields    []FieldDefinition `json:"fields,omitempty"`
	MaxItems  int               `json:"max_items,omitempty"`
}

func (f FieldDefinition) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		Name:     f.Name,
		Label:    f.Label,
		Type:     f.Kind.Name(),
		Required: f.Required,
		Default:  f.Default,
	}
	switch k := f.Kind.(type) {
	case TextField:
		out.MaxLength = k.MaxLength
	case TextareaField:
		out.MaxLength = k.MaxLength
	case SelectField:
		out.Options = k.Options
	case RepeaterField:
		out.Fields = k.Fields
		out.MaxItems = k.MaxItems
	}
	return json.Marshal(out)
}

type BlockDefinition struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Fields      []FieldDefinition `json:"fields"`
}

func (d BlockDefinition) Field(name string) (FieldDefinition, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}

type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Block is one entry of an entity's content_blocks list. Order always
// equals the block's position in the list.
type Block struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Order int            `json:"order"`
	Data  map[string]any `json:"data"`
}
