package blocks

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultRegistry = mustLoad(catalogYAML)

// Default is the registry built from the embedded catalogue.
func Default() *Registry {
	return defaultRegistry
}

// Registry is the immutable block catalogue.
type Registry struct {
	categories []Category
	blocks     []BlockDefinition
	byID       map[string]int
}

type rawField struct {
	Name      string     `yaml:"name"`
	Label     string     `yaml:"label"`
	Type      string     `yaml:"type"`
	Required  bool       `yaml:"required"`
	Default   any        `yaml:"default"`
	MaxLength int        `yaml:"max_length"`
	MaxItems  int        `yaml:"max_items"`
	Options   []Option   `yaml:"options"`
	Fields    []rawField `yaml:"fields"`
}

type rawBlock struct {
	ID          string     `yaml:"id"`
	Label       string     `yaml:"label"`
	Category    string     `yaml:"category"`
	Description string     `yaml:"description"`
	Fields      []rawField `yaml:"fields"`
}

type rawCatalog struct {
	Categories []Category `yaml:"categories"`
	Blocks     []rawBlock `yaml:"blocks"`
}

func mustLoad(data []byte) *Registry {
	r, err := Load(data)
	if err != nil {
		panic(fmt.Sprintf("blocks: invalid catalogue: %v", err))
	}
	return r
}

// Load parses and checks a YAML catalogue.
func Load(data []byte) (*Registry, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalogue: %w", err)
	}

	known := make(map[string]bool, len(raw.Categories))
	for _, c := range raw.Categories {
		if c.ID == "" || known[c.ID] {
			return nil, fmt.Errorf("invalid or duplicate category %q", c.ID)
		}
		known[c.ID] = true
	}

	r := &Registry{
		categories: raw.Categories,
		byID:       make(map[string]int, len(raw.Blocks)),
	}
	for _, rb := range raw.Blocks {
		if rb.ID == "" {
			return nil, fmt.Errorf("block without id")
		}
		if _, dup := r.byID[rb.ID]; dup {
			return nil, fmt.Errorf("duplicate block %q", rb.ID)
		}
		if !known[rb.Category] {
			return nil, fmt.Errorf("block %q: unknown category %q", rb.ID, rb.Category)
		}
		fields, err := convertFields(rb.Fields, false)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", rb.ID, err)
		}
		r.byID[rb.ID] = len(r.blocks)
		r.blocks = append(r.blocks, BlockDefinition{
			ID:          rb.ID,
			Label:       rb.Label,
			Category:    rb.Category,
			Description: rb.Description,
			Fields:      fields,
		})
	}
	return r, nil
}

func convertFields(raw []rawField, nested bool) ([]FieldDefinition, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]FieldDefinition, 0, len(raw))
	for _, rf := range raw {
		if rf.Name == "" || seen[rf.Name] {
			return nil, fmt.Errorf("invalid or duplicate field %q", rf.Name)
		}
		seen[rf.Name] = true

		var kind FieldKind
		switch rf.Type {
		case KindText:
			kind = TextField{MaxLength: rf.MaxLength}
		case KindTextarea:
			kind = TextareaField{MaxLength: rf.MaxLength}
		case KindRichText:
			kind = RichTextField{}
		case KindSelect:
			if len(rf.Options) == 0 {
				return nil, fmt.Errorf("select field %q has no options", rf.Name)
			}
			if rf.Default != nil && !hasOption(rf.Options, fmt.Sprint(rf.Default)) {
				return nil, fmt.Errorf("select field %q: default %v is not an option", rf.Name, rf.Default)
			}
			kind = SelectField{Options: rf.Options}
		case KindToggle:
			kind = ToggleField{}
		case KindImage:
			kind = ImageField{}
		case KindGallery:
			kind = GalleryField{}
		case KindRepeater:
			if nested {
				return nil, fmt.Errorf("repeater %q cannot be nested", rf.Name)
			}
			sub, err := convertFields(rf.Fields, true)
			if err != nil {
				return nil, fmt.Errorf("repeater %q: %w", rf.Name, err)
			}
			if len(sub) == 0 {
				return nil, fmt.Errorf("repeater %q has no fields", rf.Name)
			}
			kind = RepeaterField{Fields: sub, MaxItems: rf.MaxItems}
		default:
			return nil, fmt.Errorf("field %q: unknown type %q", rf.Name, rf.Type)
		}

		out = append(out, FieldDefinition{
			Name:     rf.Name,
			Label:    rf.Label,
			Kind:     kind,
			Required: rf.Required,
			Default:  rf.Default,
		})
	}
	return out, nil
}

func hasOption(options []Option, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

func (r *Registry) All() []BlockDefinition {
	return append([]BlockDefinition(nil), r.blocks...)
}

func (r *Registry) ByID(id string) (BlockDefinition, bool) {
	i, ok := r.byID[id]
	if !ok {
		return BlockDefinition{}, false
	}
	return r.blocks[i], true
}

// ByCategory groups definitions by category id, keeping catalogue order.
func (r *Registry) ByCategory() map[string][]BlockDefinition {
	out := make(map[string][]BlockDefinition, len(r.categories))
	for _, b := range r.blocks {
		out[b.Category] = append(out[b.Category], b)
	}
	return out
}

func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}
