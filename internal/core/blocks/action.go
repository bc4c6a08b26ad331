package blocks

import "fmt"

type ActionType string

const (
	ActionAdd         ActionType = "add"
	ActionEdit        ActionType = "edit"
	ActionMoveUp      ActionType = "move_up"
	ActionMoveDown    ActionType = "move_down"
	ActionDelete      ActionType = "delete"
	ActionAddItem     ActionType = "add_item"
	ActionRemoveItem  ActionType = "remove_item"
	ActionEditItem    ActionType = "edit_item"
	ActionAddImage    ActionType = "add_image"
	ActionRemoveImage ActionType = "remove_image"
)

// Action is one serialisable editor step, as sent by the admin UI.
type Action struct {
	Type      ActionType `json:"type" binding:"required"`
	BlockType string     `json:"block_type,omitempty"`
	Index     int        `json:"index"`
	Field     string     `json:"field,omitempty"`
	Item      int        `json:"item"`
	SubField  string     `json:"sub_field,omitempty"`
	Value     any        `json:"value,omitempty"`
	FileID    string     `json:"file_id,omitempty"`
	Confirm   bool       `json:"confirm,omitempty"`
}

// Apply dispatches an action to the matching editor method.
func (e *Editor) Apply(blocks []Block, a Action) ([]Block, error) {
	switch a.Type {
	case ActionAdd:
		return e.Add(blocks, a.BlockType)
	case ActionEdit:
		return e.Edit(blocks, a.Index, a.Field, a.Value)
	case ActionMoveUp:
		return e.MoveUp(blocks, a.Index), nil
	case ActionMoveDown:
		return e.MoveDown(blocks, a.Index), nil
	case ActionDelete:
		return e.Delete(blocks, a.Index, Confirmed(a.Confirm))
	case ActionAddItem:
		return e.AddItem(blocks, a.Index, a.Field)
	case ActionRemoveItem:
		return e.RemoveItem(blocks, a.Index, a.Field, a.Item)
	case ActionEditItem:
		return e.EditItem(blocks, a.Index, a.Field, a.Item, a.SubField, a.Value)
	case ActionAddImage:
		return e.AddImage(blocks, a.Index, a.Field, a.FileID)
	case ActionRemoveImage:
		return e.RemoveImage(blocks, a.Index, a.Field, a.FileID)
	}
	return Clone(blocks), fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
}
