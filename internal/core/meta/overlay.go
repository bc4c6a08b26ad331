// Package meta stores schema-free attributes for entities as one document
// per (entity, key) pair in a companion "<collection>Meta" collection.
package meta

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

const (
	FieldEntityID  = "entityId"
	FieldMetaKey   = "metaKey"
	FieldMetaValue = "metaValue"
)

const defaultConcurrency = 8

// rowNamespace seeds the deterministic row ids, one per (collection, entity, key).
var rowNamespace = uuid.MustParse("6f1b8a52-3c1e-4f4a-9d5e-2a7c0b9e4d11")

// Collection names the overlay collection for an entity collection.
func Collection(entityCollection string) string {
	return entityCollection + "Meta"
}

// RowID is the document id of the overlay row for a key. Writes through
// Set always use it, so a pair never has two rows.
func RowID(collection, entityID, key string) string {
	return uuid.NewSHA1(rowNamespace, []byte(collection+"\x00"+entityID+"\x00"+key)).String()
}

type Overlay struct {
	store       docstore.Store
	log         *logger.Logger
	concurrency int
}

func NewOverlay(store docstore.Store, log *logger.Logger) *Overlay {
	return &Overlay{store: store, log: log, concurrency: defaultConcurrency}
}

// GetAll returns every attribute of an entity, decoded. Read failures are
// logged and yield an empty map.
func (o *Overlay) GetAll(ctx context.Context, collection, entityID string) map[string]any {
	out := map[string]any{}
	for key, raw := range o.GetAllRaw(ctx, collection, entityID) {
		out[key] = Decode(raw)
	}
	return out
}

// GetAllRaw is GetAll without decoding.
func (o *Overlay) GetAllRaw(ctx context.Context, collection, entityID string) map[string]string {
	out := map[string]string{}
	res, err := o.store.List(ctx, collection,
		docstore.Equal(FieldEntityID, entityID),
		docstore.OrderAsc(docstore.FieldUpdatedAt),
	)
	if err != nil {
		o.log.Warn("failed to load meta", "collection", collection, "entity_id", entityID, "error", err)
		return out
	}
	for _, doc := range res.Documents {
		out[doc.String(FieldMetaKey)] = doc.String(FieldMetaValue)
	}
	return out
}

// Get returns the decoded value of one attribute, or def when it is absent
// or the read fails.
func (o *Overlay) Get(ctx context.Context, collection, entityID, key string, def any) any {
	raw, ok := o.GetRaw(ctx, collection, entityID, key)
	if !ok {
		return def
	}
	return Decode(raw)
}

// GetRaw returns the stored string and whether a row exists.
func (o *Overlay) GetRaw(ctx context.Context, collection, entityID, key string) (string, bool) {
	doc, err := o.store.Get(ctx, collection, RowID(collection, entityID, key))
	if err == nil {
		return doc.String(FieldMetaValue), true
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		o.log.Warn("failed to load meta key", "collection", collection, "entity_id", entityID, "key", key, "error", err)
		return "", false
	}

	// Rows written before ids were derived from the key are found by query.
	res, err := o.store.List(ctx, collection,
		docstore.Equal(FieldEntityID, entityID),
		docstore.Equal(FieldMetaKey, key),
		docstore.OrderDesc(docstore.FieldUpdatedAt),
		docstore.Limit(1),
	)
	if err != nil {
		o.log.Warn("failed to load meta key", "collection", collection, "entity_id", entityID, "key", key, "error", err)
		return "", false
	}
	if len(res.Documents) == 0 {
		return "", false
	}
	return res.Documents[0].String(FieldMetaValue), true
}

// Set writes one attribute with a single create-or-replace call. Errors
// are returned to the caller.
func (o *Overlay) Set(ctx context.Context, collection, entityID, key string, value any) error {
	encoded, err := Encode(value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s on %s: %w", key, entityID, err)
	}

	id := RowID(collection, entityID, key)
	_, err = o.store.Put(ctx, collection, id, map[string]any{
		FieldEntityID:  entityID,
		FieldMetaKey:   key,
		FieldMetaValue: encoded,
	})
	if err != nil {
		return fmt.Errorf("failed to set meta %s on %s: %w", key, entityID, err)
	}
	return o.dropLegacyRows(ctx, collection, entityID, key, id)
}

func (o *Overlay) dropLegacyRows(ctx context.Context, collection, entityID, key, keep string) error {
	rows, err := o.rows(ctx, collection, docstore.Equal(FieldEntityID, entityID), docstore.Equal(FieldMetaKey, key))
	if err != nil {
		return fmt.Errorf("failed to check meta %s on %s: %w", key, entityID, err)
	}
	for _, doc := range rows {
		if doc.ID == keep {
			continue
		}
		if err := o.store.Delete(ctx, collection, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("failed to remove duplicate meta %s on %s: %w", key, entityID, err)
		}
	}
	return nil
}

// SetMultiple writes every key concurrently. There is no rollback: when one
// write fails the others may already be stored.
func (o *Overlay) SetMultiple(ctx context.Context, collection, entityID string, values map[string]any) error {
	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for key, value := range values {
		g.Go(func() error {
			return o.Set(ctx, collection, entityID, key, value)
		})
	}
	return g.Wait()
}

// Delete removes one attribute and reports whether it existed.
func (o *Overlay) Delete(ctx context.Context, collection, entityID, key string) (bool, error) {
	rows, err := o.rows(ctx, collection, docstore.Equal(FieldEntityID, entityID), docstore.Equal(FieldMetaKey, key))
	if err != nil {
		return false, fmt.Errorf("failed to delete meta %s on %s: %w", key, entityID, err)
	}
	if len(rows) == 0 {
		return false, nil
	}
	for _, doc := range rows {
		if err := o.store.Delete(ctx, collection, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return false, fmt.Errorf("failed to delete meta %s on %s: %w", key, entityID, err)
		}
	}
	return true, nil
}

// DeleteAll removes every attribute of an entity concurrently and reports
// whether any existed.
func (o *Overlay) DeleteAll(ctx context.Context, collection, entityID string) (bool, error) {
	rows, err := o.rows(ctx, collection, docstore.Equal(FieldEntityID, entityID))
	if err != nil {
		return false, fmt.Errorf("failed to delete meta for %s: %w", entityID, err)
	}
	if len(rows) == 0 {
		return false, nil
	}

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for _, doc := range rows {
		g.Go(func() error {
			if err := o.store.Delete(ctx, collection, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return fmt.Errorf("failed to delete meta row %s: %w", doc.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}
	return true, nil
}

// FindEntitiesByMeta returns the ids of entities whose key holds exactly
// value, in first-seen order. Read failures yield nil.
func (o *Overlay) FindEntitiesByMeta(ctx context.Context, collection, key string, value any) []string {
	encoded, err := Encode(value)
	if err != nil {
		o.log.Warn("failed to encode meta lookup value", "collection", collection, "key", key, "error", err)
		return nil
	}
	rows, err := o.rows(ctx, collection, docstore.Equal(FieldMetaKey, key), docstore.Equal(FieldMetaValue, encoded))
	if err != nil {
		o.log.Warn("failed to find entities by meta", "collection", collection, "key", key, "error", err)
		return nil
	}
	return entityIDs(rows)
}

// EntityIDs lists every entity that has at least one attribute.
func (o *Overlay) EntityIDs(ctx context.Context, collection string) ([]string, error) {
	rows, err := o.rows(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list meta entities in %s: %w", collection, err)
	}
	return entityIDs(rows), nil
}

// PurgeOrphans deletes the attributes of entities for which alive reports
// false and returns how many entities were purged.
func (o *Overlay) PurgeOrphans(ctx context.Context, collection string, alive func(ctx context.Context, entityID string) (bool, error)) (int, error) {
	ids, err := o.EntityIDs(ctx, collection)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, id := range ids {
		ok, err := alive(ctx, id)
		if err != nil {
			return purged, err
		}
		if ok {
			continue
		}
		if _, err := o.DeleteAll(ctx, collection, id); err != nil {
			return purged, err
		}
		o.log.Info("purged orphaned meta", "collection", collection, "entity_id", id)
		purged++
	}
	return purged, nil
}

func (o *Overlay) rows(ctx context.Context, collection string, queries ...docstore.Query) ([]*docstore.Document, error) {
	res, err := o.store.List(ctx, collection, queries...)
	if err != nil {
		return nil, err
	}
	return res.Documents, nil
}

func entityIDs(rows []*docstore.Document) []string {
	seen := make(map[string]bool, len(rows))
	var ids []string
	for _, doc := range rows {
		id := doc.String(FieldEntityID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
