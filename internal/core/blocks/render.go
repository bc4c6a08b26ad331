package blocks

import (
	"fmt"
	"sort"
)

// URLResolver turns a stored file id into a public URL.
type URLResolver interface {
	View(fileID string) string
}

type RenderedImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Section is a block prepared for the public site. Error is set, and
// Fields left empty, when the block cannot be rendered.
type Section struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label,omitempty"`
	Category string         `json:"category,omitempty"`
	Order    int            `json:"order"`
	Fields   map[string]any `json:"fields,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type Renderer struct {
	registry *Registry
	urls     URLResolver
}

func NewRenderer(registry *Registry, urls URLResolver) *Renderer {
	return &Renderer{registry: registry, urls: urls}
}

// Render converts blocks to sections in order. An unknown block type only
// affects its own section.
func (r *Renderer) Render(blocks []Block) []Section {
	sorted := append([]Block(nil), blocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	sections := make([]Section, 0, len(sorted))
	for _, b := range sorted {
		def, ok := r.registry.ByID(b.Type)
		if !ok {
			sections = append(sections, Section{
				ID:    b.ID,
				Type:  b.Type,
				Order: b.Order,
				Error: fmt.Sprintf("unknown block type %q", b.Type),
			})
			continue
		}
		sections = append(sections, Section{
			ID:       b.ID,
			Type:     b.Type,
			Label:    def.Label,
			Category: def.Category,
			Order:    b.Order,
			Fields:   r.renderFields(def.Fields, b.Data),
		})
	}
	return sections
}

func (r *Renderer) renderFields(fields []FieldDefinition, data map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v := &renderVisitor{r: r, in: data[f.Name]}
		f.Kind.Accept(v)
		out[f.Name] = v.out
	}
	return out
}

type renderVisitor struct {
	r   *Renderer
	in  any
	out any
}

func (v *renderVisitor) text() {
	switch x := v.in.(type) {
	case nil:
		v.out = ""
	case string:
		v.out = x
	default:
		v.out = fmt.Sprint(x)
	}
}

func (v *renderVisitor) VisitText(TextField)         { v.text() }
func (v *renderVisitor) VisitTextarea(TextareaField) { v.text() }
func (v *renderVisitor) VisitRichText(RichTextField) { v.text() }
func (v *renderVisitor) VisitSelect(SelectField)     { v.text() }

func (v *renderVisitor) VisitToggle(ToggleField) {
	switch x := v.in.(type) {
	case bool:
		v.out = x
	case string:
		v.out = x == "true"
	default:
		v.out = false
	}
}

func (v *renderVisitor) VisitImage(ImageField) {
	id, _ := v.in.(string)
	if id == "" {
		v.out = nil
		return
	}
	v.out = &RenderedImage{ID: id, URL: v.r.urls.View(id)}
}

func (v *renderVisitor) VisitGallery(GalleryField) {
	ids := GalleryIDs(v.in)
	images := make([]RenderedImage, 0, len(ids))
	for _, id := range ids {
		images = append(images, RenderedImage{ID: id, URL: v.r.urls.View(id)})
	}
	v.out = images
}

func (v *renderVisitor) VisitRepeater(k RepeaterField) {
	items := Items(v.in)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, v.r.renderFields(k.Fields, item))
	}
	v.out = out
}
