package meta

import "context"

// Key is a typed handle on one attribute name.
type Key[T any] struct {
	Name string
}

// Get returns the stored value decoded into T, or def when the attribute is
// missing, unreadable or not a valid T.
func (k Key[T]) Get(ctx context.Context, o *Overlay, collection, entityID string, def T) T {
	raw, ok := o.GetRaw(ctx, collection, entityID, k.Name)
	if !ok {
		return def
	}
	v, err := DecodeInto[T](raw)
	if err != nil {
		o.log.Warn("invalid meta value", "collection", collection, "entity_id", entityID, "key", k.Name, "error", err)
		return def
	}
	return v
}

// Lookup is Get with an explicit presence flag.
func (k Key[T]) Lookup(ctx context.Context, o *Overlay, collection, entityID string) (T, bool) {
	var zero T
	raw, ok := o.GetRaw(ctx, collection, entityID, k.Name)
	if !ok {
		return zero, false
	}
	v, err := DecodeInto[T](raw)
	if err != nil {
		o.log.Warn("invalid meta value", "collection", collection, "entity_id", entityID, "key", k.Name, "error", err)
		return zero, false
	}
	return v, true
}

func (k Key[T]) Set(ctx context.Context, o *Overlay, collection, entityID string, value T) error {
	return o.Set(ctx, collection, entityID, k.Name, value)
}

