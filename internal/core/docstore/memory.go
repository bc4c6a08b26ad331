package docstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memDoc struct {
	doc *Document
	seq int64
}

// MemoryStore keeps collections in process memory. Unordered listings
// return documents in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*memDoc
	seq         int64
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memDoc),
		now:         time.Now,
	}
}

func (s *MemoryStore) List(ctx context.Context, collection string, queries ...Query) (*ListResult, error) {
	p, err := compile(queries)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var matches []*memDoc
	for _, md := range s.collections[collection] {
		if matchesAll(md.doc, p.filters) {
			matches = append(matches, md)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		for _, o := range p.orders {
			c := compareValues(fieldValue(matches[i].doc, o.field), fieldValue(matches[j].doc, o.field))
			if c == 0 {
				continue
			}
			if o.desc {
				return c > 0
			}
			return c < 0
		}
		return matches[i].seq < matches[j].seq
	})

	total := len(matches)
	if p.offset > 0 {
		if p.offset >= len(matches) {
			matches = nil
		} else {
			matches = matches[p.offset:]
		}
	}
	if p.limit > 0 && len(matches) > p.limit {
		matches = matches[:p.limit]
	}

	docs := make([]*Document, 0, len(matches))
	for _, md := range matches {
		docs = append(docs, cloneDocument(md.doc))
	}
	return &ListResult{Documents: docs, Total: total}, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	md, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDocument(md.doc), nil
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	if _, exists := coll[id]; exists {
		return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	return cloneDocument(s.insert(coll, id, data)), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	md, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range data {
		md.doc.Data[k] = cloneValue(v)
	}
	md.doc.UpdatedAt = s.now()
	return cloneDocument(md.doc), nil
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collection(collection)
	if md, ok := coll[id]; ok {
		md.doc.Data = cloneData(data)
		md.doc.UpdatedAt = s.now()
		return cloneDocument(md.doc), nil
	}
	return cloneDocument(s.insert(coll, id, data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	if _, ok := coll[id]; !ok {
		return ErrNotFound
	}
	delete(coll, id)
	return nil
}

func (s *MemoryStore) collection(name string) map[string]*memDoc {
	coll, ok := s.collections[name]
	if !ok {
		coll = make(map[string]*memDoc)
		s.collections[name] = coll
	}
	return coll
}

func (s *MemoryStore) insert(coll map[string]*memDoc, id string, data map[string]any) *Document {
	now := s.now()
	s.seq++
	doc := &Document{ID: id, Data: cloneData(data), CreatedAt: now, UpdatedAt: now}
	coll[id] = &memDoc{doc: doc, seq: s.seq}
	return doc
}

func matchesAll(doc *Document, filters []filter) bool {
	for _, f := range filters {
		v := fieldValue(doc, f.field)
		if v == nil {
			return false
		}
		if TextValue(v) != TextValue(f.value) {
			return false
		}
	}
	return true
}

func fieldValue(doc *Document, field string) any {
	switch field {
	case FieldID:
		return doc.ID
	case FieldCreatedAt:
		return doc.CreatedAt
	case FieldUpdatedAt:
		return doc.UpdatedAt
	}
	return doc.Data[field]
}

// compareValues orders missing values first, then numbers, times and
// strings by their natural order; mixed types fall back to text order.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(TextValue(a), TextValue(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case bool, string:
		return 0, false
	}
	f, err := strconv.ParseFloat(TextValue(v), 64)
	return f, err == nil
}

func cloneDocument(d *Document) *Document {
	c := *d
	c.Data = cloneData(d.Data)
	return &c
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneData(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneData(e)
		}
		return out
	}
	return v
}
