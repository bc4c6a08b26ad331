// Package seo keeps an entity's meta description in step with its excerpt
// until an editor overrides it.
package seo

import (
	"context"
	"fmt"

	"github.com/agencyhq/agencysite/internal/core/meta"
)

var (
	MetaDescription = meta.Key[string]{Name: "meta_description"}
	// Overridden is absent on rows written before it existed; see IsOverridden.
	Overridden = meta.Key[bool]{Name: "meta_description_overridden"}
)

type Syncer struct {
	overlay    *meta.Overlay
	collection string
}

// NewSyncer works on the overlay collection of one entity kind.
func NewSyncer(overlay *meta.Overlay, collection string) *Syncer {
	return &Syncer{overlay: overlay, collection: collection}
}

// IsOverridden reports whether the description was set by hand. Without a
// stored flag a description that exists and differs from the excerpt
// counts as overridden.
func (s *Syncer) IsOverridden(ctx context.Context, entityID, excerpt string) bool {
	if flag, ok := Overridden.Lookup(ctx, s.overlay, s.collection, entityID); ok {
		return flag
	}
	desc, ok := MetaDescription.Lookup(ctx, s.overlay, s.collection, entityID)
	return ok && desc != "" && desc != excerpt
}

// Sync copies the excerpt into the description unless it is overridden or
// force is set. It reports whether a write happened.
func (s *Syncer) Sync(ctx context.Context, entityID, excerpt string, force bool) (bool, error) {
	if !force && s.IsOverridden(ctx, entityID, excerpt) {
		return false, nil
	}
	err := s.overlay.SetMultiple(ctx, s.collection, entityID, map[string]any{
		MetaDescription.Name: excerpt,
		Overridden.Name:      false,
	})
	if err != nil {
		return false, fmt.Errorf("failed to sync meta description: %w", err)
	}
	return true, nil
}

// Revert discards any override.
func (s *Syncer) Revert(ctx context.Context, entityID, excerpt string) error {
	_, err := s.Sync(ctx, entityID, excerpt, true)
	return err
}

// SetManual stores literal editor input. An empty value clears the
// override so the excerpt takes over again on the next sync.
func (s *Syncer) SetManual(ctx context.Context, entityID, value string) error {
	err := s.overlay.SetMultiple(ctx, s.collection, entityID, map[string]any{
		MetaDescription.Name: value,
		Overridden.Name:      value != "",
	})
	if err != nil {
		return fmt.Errorf("failed to store meta description: %w", err)
	}
	return nil
}

// Effective is the description to publish: the stored one, or the excerpt
// when nothing is stored.
func (s *Syncer) Effective(ctx context.Context, entityID, excerpt string) string {
	if desc := MetaDescription.Get(ctx, s.overlay, s.collection, entityID, ""); desc != "" {
		return desc
	}
	return excerpt
}

// ApplyOnSave runs at the end of an entity save. manual is non-nil when the
// editor touched the description field during the edit.
func (s *Syncer) ApplyOnSave(ctx context.Context, entityID, excerpt string, manual *string) error {
	if manual != nil {
		return s.SetManual(ctx, entityID, *manual)
	}
	_, err := s.Sync(ctx, entityID, excerpt, false)
	return err
}
