package blocks

// FieldKind is the closed set of field types a block definition can use.
// Code that branches on the kind goes through a FieldVisitor, so adding a
// kind breaks every switch that does not handle it.
type FieldKind interface {
	Name() string
	Accept(v FieldVisitor)
	fieldKind()
}

type FieldVisitor interface {
	VisitText(TextField)
	VisitTextarea(TextareaField)
	VisitRichText(RichTextField)
	VisitSelect(SelectField)
	VisitToggle(ToggleField)
	VisitImage(ImageField)
	VisitGallery(GalleryField)
	VisitRepeater(RepeaterField)
}

const (
	KindText     = "text"
	KindTextarea = "textarea"
	KindRichText = "richtext"
	KindSelect   = "select"
	KindToggle   = "toggle"
	KindImage    = "image"
	KindGallery  = "gallery"
	KindRepeater = "repeater"
)

type TextField struct {
	MaxLength int
}

type TextareaField struct {
	MaxLength int
}

type RichTextField struct{}

type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

type SelectField struct {
	Options []Option
}

type ToggleField struct{}

// ImageField holds one file id.
type ImageField struct{}

// GalleryField holds an ordered list of file ids.
type GalleryField struct{}

type RepeaterField struct {
	Fields   []FieldDefinition
	MaxItems int
}

func (TextField) Name() string     { return KindText }
func (TextareaField) Name() string { return KindTextarea }
func (RichTextField) Name() string { return KindRichText }
func (SelectField) Name() string   { return KindSelect }
func (ToggleField) Name() string   { return KindToggle }
func (ImageField) Name() string    { return KindImage }
func (GalleryField) Name() string  { return KindGallery }
func (RepeaterField) Name() string { return KindRepeater }

func (k TextField) Accept(v FieldVisitor)     { v.VisitText(k) }
func (k TextareaField) Accept(v FieldVisitor) { v.VisitTextarea(k) }
func (k RichTextField) Accept(v FieldVisitor) { v.VisitRichText(k) }
func (k SelectField) Accept(v FieldVisitor)   { v.VisitSelect(k) }
func (k ToggleField) Accept(v FieldVisitor)   { v.VisitToggle(k) }
func (k ImageField) Accept(v FieldVisitor)    { v.VisitImage(k) }
func (k GalleryField) Accept(v FieldVisitor)  { v.VisitGallery(k) }
func (k RepeaterField) Accept(v FieldVisitor) { v.VisitRepeater(k) }

func (TextField) fieldKind()     {}
func (TextareaField) fieldKind() {}
func (RichTextField) fieldKind() {}
func (SelectField) fieldKind()   {}
func (ToggleField) fieldKind()   {}
func (ImageField) fieldKind()    {}
func (GalleryField) fieldKind()  {}
func (RepeaterField) fieldKind() {}

// initialVisitor computes the value a field starts with when a block or a
// repeater item is created.
type initialVisitor struct {
	def    any
	nested bool
	value  any
}

func initialValue(f FieldDefinition, nested bool) any {
	v := &initialVisitor{def: f.Default, nested: nested}
	f.Kind.Accept(v)
	return v.value
}

func (v *initialVisitor) text() {
	if v.def != nil && !v.nested {
		v.value = v.def
		return
	}
	v.value = ""
}

func (v *initialVisitor) VisitText(TextField)         { v.text() }
func (v *initialVisitor) VisitTextarea(TextareaField) { v.text() }
func (v *initialVisitor) VisitRichText(RichTextField) { v.text() }
func (v *initialVisitor) VisitSelect(SelectField)     { v.text() }
func (v *initialVisitor) VisitImage(ImageField)       { v.text() }

func (v *initialVisitor) VisitToggle(ToggleField) {
	if b, ok := v.def.(bool); ok && !v.nested {
		v.value = b
		return
	}
	v.value = false
}

func (v *initialVisitor) VisitGallery(GalleryField) { v.value = []string{} }

func (v *initialVisitor) VisitRepeater(RepeaterField) { v.value = []any{} }
