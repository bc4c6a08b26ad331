package blocks

import (
	"github.com/agencyhq/agencysite/internal/core/validation"
)

// Schema returns the JSON Schema that a block's data must satisfy. Required
// fields must be present; empty values are allowed while editing.
func (r *Registry) Schema(blockType string) (map[string]interface{}, bool) {
	def, ok := r.ByID(blockType)
	if !ok {
		return nil, false
	}
	props, required := fieldProperties(def.Fields)
	return validation.NewSchema(def.Label, props, required), true
}

func fieldProperties(fields []FieldDefinition) (map[string]*validation.SchemaProperty, []string) {
	props := make(map[string]*validation.SchemaProperty, len(fields))
	var required []string
	for _, f := range fields {
		v := &schemaVisitor{}
		f.Kind.Accept(v)
		v.prop.Title = f.Label
		props[f.Name] = v.prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return props, required
}

type schemaVisitor struct {
	prop *validation.SchemaProperty
}

func (v *schemaVisitor) VisitText(k TextField) {
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeString, MaxLength: k.MaxLength}
}

func (v *schemaVisitor) VisitTextarea(k TextareaField) {
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeString, MaxLength: k.MaxLength}
}

func (v *schemaVisitor) VisitRichText(RichTextField) {
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeString}
}

func (v *schemaVisitor) VisitSelect(k SelectField) {
	enum := make([]interface{}, 0, len(k.Options)+1)
	for _, o := range k.Options {
		enum = append(enum, o.Value)
	}
	// Blocks start with "" until the editor picks an option.
	enum = append(enum, "")
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeString, Enum: enum}
}

func (v *schemaVisitor) VisitToggle(ToggleField) {
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeBoolean}
}

func (v *schemaVisitor) VisitImage(ImageField) {
	v.prop = &validation.SchemaProperty{Type: validation.PropertyTypeString}
}

func (v *schemaVisitor) VisitGallery(GalleryField) {
	v.prop = &validation.SchemaProperty{
		Type:  validation.PropertyTypeArray,
		Items: &validation.SchemaProperty{Type: validation.PropertyTypeString},
	}
}

func (v *schemaVisitor) VisitRepeater(k RepeaterField) {
	props, required := fieldProperties(k.Fields)
	v.prop = &validation.SchemaProperty{
		Type:     validation.PropertyTypeArray,
		MaxItems: k.MaxItems,
		Items: &validation.SchemaProperty{
			Type:       validation.PropertyTypeObject,
			Properties: props,
			Required:   required,
		},
	}
}
