package validation

// JSON Schema property types
type PropertyType string

const (
	PropertyTypeString  PropertyType = "string"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeInteger PropertyType = "integer"
	PropertyTypeBoolean PropertyType = "boolean"
	PropertyTypeArray   PropertyType = "array"
	PropertyTypeObject  PropertyType = "object"
)

// Schema builder helpers
type SchemaProperty struct {
	Type        PropertyType               `json:"type"`
	Title       string                     `json:"title,omitempty"`
	Description string                     `json:"description,omitempty"`
	Format      string                     `json:"format,omitempty"`
	Enum        []interface{}              `json:"enum,omitempty"`
	Default     interface{}                `json:"default,omitempty"`
	MaxLength   int                        `json:"maxLength,omitempty"`
	Minimum     *float64                   `json:"minimum,omitempty"`
	Maximum     *float64                   `json:"maximum,omitempty"`
	MaxItems    int                        `json:"maxItems,omitempty"`
	Items       *SchemaProperty            `json:"items,omitempty"`
	Properties  map[string]*SchemaProperty `json:"properties,omitempty"`
	Required    []string                   `json:"required,omitempty"`
}

func NewSchema(title string, properties map[string]*SchemaProperty, required []string) map[string]interface{} {
	props := make(map[string]interface{})
	for k, v := range properties {
		props[k] = v
	}

	schema := map[string]interface{}{
		"type":       "object",
		"title":      title,
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func Float(v float64) *float64 {
	return &v
}
