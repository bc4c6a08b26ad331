package blocks

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/agencyhq/agencysite/internal/core/validation"
)

var (
	ErrUnknownBlockType     = errors.New("unknown block type")
	ErrIndexOutOfRange      = errors.New("index out of range")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	ErrUnknownField         = errors.New("unknown field")
	ErrWrongFieldKind       = errors.New("operation not supported for this field kind")
	ErrTooManyItems         = errors.New("repeater is full")
	ErrEmptyFileID          = errors.New("file id is required")
	ErrUnknownAction        = errors.New("unknown action")
)

// Confirmer asks the operator to confirm a destructive step.
type Confirmer func() bool

// Confirmed is a Confirmer for callers that collected consent up front.
func Confirmed(ok bool) Confirmer {
	return func() bool { return ok }
}

// Editor applies editing operations to a block list. Every method returns
// a new list and leaves its input untouched; on error the returned list
// is the unchanged input copy.
type Editor struct {
	registry  *Registry
	validator *validation.Validator
	newID     func() string
}

func NewEditor(registry *Registry, validator *validation.Validator) *Editor {
	return &Editor{registry: registry, validator: validator, newID: uuid.NewString}
}

// Add appends a block of the given type with its fields initialised.
func (e *Editor) Add(blocks []Block, blockType string) ([]Block, error) {
	out := Clone(blocks)
	def, ok := e.registry.ByID(blockType)
	if !ok {
		return out, fmt.Errorf("%w: %q", ErrUnknownBlockType, blockType)
	}

	data := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		data[f.Name] = initialValue(f, false)
	}
	out = append(out, Block{ID: e.newID(), Type: blockType, Order: len(out), Data: data})
	return out, nil
}

// Edit replaces one field value.
func (e *Editor) Edit(blocks []Block, index int, field string, value any) ([]Block, error) {
	out := Clone(blocks)
	b, def, err := e.target(out, index)
	if err != nil {
		return out, err
	}
	if _, ok := def.Field(field); !ok {
		return out, fmt.Errorf("%w: %s.%s", ErrUnknownField, def.ID, field)
	}
	b.Data[field] = value
	return out, nil
}

// MoveUp swaps the block with its predecessor. The first block and
// out-of-range indexes leave the list unchanged.
func (e *Editor) MoveUp(blocks []Block, index int) []Block {
	return swap(Clone(blocks), index, index-1)
}

// MoveDown swaps the block with its successor. The last block and
// out-of-range indexes leave the list unchanged.
func (e *Editor) MoveDown(blocks []Block, index int) []Block {
	return swap(Clone(blocks), index, index+1)
}

// Delete removes the block once confirm agrees.
func (e *Editor) Delete(blocks []Block, index int, confirm Confirmer) ([]Block, error) {
	out := Clone(blocks)
	if index < 0 || index >= len(out) {
		return out, fmt.Errorf("%w: block %d", ErrIndexOutOfRange, index)
	}
	if confirm == nil || !confirm() {
		return out, ErrConfirmationRequired
	}
	out = append(out[:index], out[index+1:]...)
	renumber(out)
	return out, nil
}

// AddItem appends an empty item to a repeater field.
func (e *Editor) AddItem(blocks []Block, index int, field string) ([]Block, error) {
	out := Clone(blocks)
	b, rep, err := e.repeater(out, index, field)
	if err != nil {
		return out, err
	}
	items := Items(b.Data[field])
	if rep.MaxItems > 0 && len(items) >= rep.MaxItems {
		return out, fmt.Errorf("%w: %s holds at most %d items", ErrTooManyItems, field, rep.MaxItems)
	}
	item := make(map[string]any, len(rep.Fields))
	for _, f := range rep.Fields {
		item[f.Name] = initialValue(f, true)
	}
	b.Data[field] = append(items, item)
	return out, nil
}

func (e *Editor) RemoveItem(blocks []Block, index int, field string, item int) ([]Block, error) {
	out := Clone(blocks)
	b, _, err := e.repeater(out, index, field)
	if err != nil {
		return out, err
	}
	items := Items(b.Data[field])
	if item < 0 || item >= len(items) {
		return out, fmt.Errorf("%w: item %d of %s", ErrIndexOutOfRange, item, field)
	}
	b.Data[field] = append(items[:item], items[item+1:]...)
	return out, nil
}

func (e *Editor) EditItem(blocks []Block, index int, field string, item int, subField string, value any) ([]Block, error) {
	out := Clone(blocks)
	b, rep, err := e.repeater(out, index, field)
	if err != nil {
		return out, err
	}
	if !hasField(rep.Fields, subField) {
		return out, fmt.Errorf("%w: %s.%s", ErrUnknownField, field, subField)
	}
	items := Items(b.Data[field])
	if item < 0 || item >= len(items) {
		return out, fmt.Errorf("%w: item %d of %s", ErrIndexOutOfRange, item, field)
	}
	items[item][subField] = value
	b.Data[field] = items
	return out, nil
}

// AddImage appends a file id to a gallery field.
func (e *Editor) AddImage(blocks []Block, index int, field, fileID string) ([]Block, error) {
	out := Clone(blocks)
	if fileID == "" {
		return out, ErrEmptyFileID
	}
	b, err := e.gallery(out, index, field)
	if err != nil {
		return out, err
	}
	b.Data[field] = append(GalleryIDs(b.Data[field]), fileID)
	return out, nil
}

// RemoveImage drops every occurrence of fileID from a gallery field.
func (e *Editor) RemoveImage(blocks []Block, index int, field, fileID string) ([]Block, error) {
	out := Clone(blocks)
	b, err := e.gallery(out, index, field)
	if err != nil {
		return out, err
	}
	ids := GalleryIDs(b.Data[field])
	kept := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != fileID {
			kept = append(kept, id)
		}
	}
	b.Data[field] = kept
	return out, nil
}

// Normalize repairs a list loaded from storage: blocks are sorted by their
// stored order and renumbered, missing or repeated ids are replaced,
// legacy gallery strings become arrays and missing required fields get
// their initial value. Blocks of unknown type are kept as they are.
func (e *Editor) Normalize(blocks []Block) []Block {
	out := Clone(blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	renumber(out)

	seen := make(map[string]bool, len(out))
	for i := range out {
		b := &out[i]
		if b.ID == "" || seen[b.ID] {
			b.ID = e.newID()
		}
		seen[b.ID] = true

		def, ok := e.registry.ByID(b.Type)
		if !ok {
			continue
		}
		for _, f := range def.Fields {
			v, present := b.Data[f.Name]
			if _, isGallery := f.Kind.(GalleryField); isGallery && present {
				b.Data[f.Name] = GalleryIDs(v)
				continue
			}
			if !present && f.Required {
				b.Data[f.Name] = initialValue(f, false)
			}
		}
	}
	return out
}

// Issue describes one block that fails validation.
type Issue struct {
	Index   int                          `json:"index"`
	BlockID string                       `json:"block_id"`
	Type    string                       `json:"type"`
	Message string                       `json:"message"`
	Details []validation.ValidationError `json:"details,omitempty"`

	// UnknownType is set when the block's type is not in the registry.
	UnknownType bool `json:"unknown_type,omitempty"`
}

// Validate checks every block against its definition. Problems are
// reported per block and never stop the rest of the list from being checked.
func (e *Editor) Validate(blocks []Block) []Issue {
	var issues []Issue
	for i, b := range blocks {
		schema, ok := e.registry.Schema(b.Type)
		if !ok {
			issues = append(issues, Issue{Index: i, BlockID: b.ID, Type: b.Type, Message: ErrUnknownBlockType.Error(), UnknownType: true})
			continue
		}
		err := e.validator.Validate(b.Data, schema)
		if err == nil {
			continue
		}
		issue := Issue{Index: i, BlockID: b.ID, Type: b.Type, Message: "invalid block data"}
		if ve := validation.GetValidationErrors(err); ve != nil {
			issue.Details = ve.Errors
		} else {
			issue.Message = err.Error()
		}
		issues = append(issues, issue)
	}
	return issues
}

func (e *Editor) target(blocks []Block, index int) (*Block, BlockDefinition, error) {
	if index < 0 || index >= len(blocks) {
		return nil, BlockDefinition{}, fmt.Errorf("%w: block %d", ErrIndexOutOfRange, index)
	}
	b := &blocks[index]
	def, ok := e.registry.ByID(b.Type)
	if !ok {
		return nil, BlockDefinition{}, fmt.Errorf("%w: %q", ErrUnknownBlockType, b.Type)
	}
	if b.Data == nil {
		b.Data = map[string]any{}
	}
	return b, def, nil
}

func (e *Editor) repeater(blocks []Block, index int, field string) (*Block, RepeaterField, error) {
	b, def, err := e.target(blocks, index)
	if err != nil {
		return nil, RepeaterField{}, err
	}
	f, ok := def.Field(field)
	if !ok {
		return nil, RepeaterField{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, def.ID, field)
	}
	rep, ok := f.Kind.(RepeaterField)
	if !ok {
		return nil, RepeaterField{}, fmt.Errorf("%w: %s is %s", ErrWrongFieldKind, field, f.Kind.Name())
	}
	return b, rep, nil
}

func (e *Editor) gallery(blocks []Block, index int, field string) (*Block, error) {
	b, def, err := e.target(blocks, index)
	if err != nil {
		return nil, err
	}
	f, ok := def.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, def.ID, field)
	}
	if _, ok := f.Kind.(GalleryField); !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrWrongFieldKind, field, f.Kind.Name())
	}
	return b, nil
}

// Items reads a repeater value as a list of item maps. Entries that are
// not objects are dropped.
func Items(value any) []map[string]any {
	var out []map[string]any
	switch v := value.(type) {
	case []map[string]any:
		out = append(out, v...)
	case []any:
		for _, e := range v {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
	}
	if out == nil {
		out = []map[string]any{}
	}
	return out
}

func hasField(fields []FieldDefinition, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func swap(blocks []Block, i, j int) []Block {
	if i < 0 || j < 0 || i >= len(blocks) || j >= len(blocks) {
		return blocks
	}
	blocks[i], blocks[j] = blocks[j], blocks[i]
	renumber(blocks)
	return blocks
}

func renumber(blocks []Block) {
	for i := range blocks {
		blocks[i].Order = i
	}
}

// Clone deep-copies a block list.
func Clone(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b
		out[i].Data = cloneMap(b.Data)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(x))
		for i, e := range x {
			out[i] = cloneMap(e)
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	}
	return v
}
