package content

import (
	"github.com/agencyhq/agencysite/internal/core/validation"
)

func str(title string) *validation.SchemaProperty {
	return &validation.SchemaProperty{Type: validation.PropertyTypeString, Title: title}
}

func strList(title string) *validation.SchemaProperty {
	return &validation.SchemaProperty{
		Type:  validation.PropertyTypeArray,
		Title: title,
		Items: &validation.SchemaProperty{Type: validation.PropertyTypeString},
	}
}

// fieldSchemas describe the kind-specific attributes kept in Entity.Fields.
var fieldSchemas = map[Kind]map[string]interface{}{
	KindServiceGroup: validation.NewSchema("Service group", map[string]*validation.SchemaProperty{
		"icon":  str("Icon file id"),
		"color": str("Accent colour"),
	}, nil),
	KindService: validation.NewSchema("Service", map[string]*validation.SchemaProperty{
		"icon":       str("Icon file id"),
		"price_from": {Type: validation.PropertyTypeNumber, Title: "Price from", Minimum: validation.Float(0)},
		"duration":   str("Typical duration"),
	}, nil),
	KindProject: validation.NewSchema("Project", map[string]*validation.SchemaProperty{
		"client":       str("Client"),
		"year":         {Type: validation.PropertyTypeInteger, Title: "Year", Minimum: validation.Float(1900), Maximum: validation.Float(2100)},
		"cover_image":  str("Cover image file id"),
		"url":          str("Live URL"),
		"technologies": strList("Technologies"),
	}, nil),
	KindCaseStudy: validation.NewSchema("Case study", map[string]*validation.SchemaProperty{
		"client":      str("Client"),
		"industry":    str("Industry"),
		"results":     strList("Results"),
		"cover_image": str("Cover image file id"),
	}, nil),
	KindPage: validation.NewSchema("Page", map[string]*validation.SchemaProperty{
		"template": {
			Type:  validation.PropertyTypeString,
			Title: "Template",
			Enum:  []interface{}{"", "default", "landing", "contact"},
		},
	}, nil),
	KindTestimonial: validation.NewSchema("Testimonial", map[string]*validation.SchemaProperty{
		"author_name": {Type: validation.PropertyTypeString, Title: "Author", MaxLength: 120},
		"author_role": str("Role"),
		"company":     str("Company"),
		"rating":      {Type: validation.PropertyTypeInteger, Title: "Rating", Minimum: validation.Float(1), Maximum: validation.Float(5)},
		"avatar":      str("Avatar file id"),
	}, []string{"author_name"}),
}

// FieldSchema returns the JSON Schema for a kind's Fields.
func FieldSchema(kind Kind) map[string]interface{} {
	return fieldSchemas[kind]
}
