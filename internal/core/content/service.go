package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/meta"
	"github.com/agencyhq/agencysite/internal/core/seo"
	"github.com/agencyhq/agencysite/internal/core/validation"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

var (
	ErrNotFound    = errors.New("entity not found")
	ErrSlugTaken   = errors.New("slug already in use")
	ErrPartialSave = errors.New("entity saved but its attributes were not")
	ErrUnknownKind = errors.New("unknown content kind")
)

const loadConcurrency = 8

type Service struct {
	repo      *Repository
	overlay   *meta.Overlay
	editor    *blocks.Editor
	validator *validation.Validator
	log       *logger.Logger
}

func NewService(repo *Repository, overlay *meta.Overlay, editor *blocks.Editor, validator *validation.Validator, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		overlay:   overlay,
		editor:    editor,
		validator: validator,
		log:       log,
	}
}

func (s *Service) Editor() *blocks.Editor {
	return s.editor
}

func (s *Service) syncer(kind Kind) *seo.Syncer {
	return seo.NewSyncer(s.overlay, kind.MetaCollection())
}

func checkKind(kind Kind) error {
	if _, ok := kinds[kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return nil
}

// Create stores a new entity and then its overlay attributes. When the
// entity is stored but an attribute write fails, the error wraps
// ErrPartialSave and names the entity id.
func (s *Service) Create(ctx context.Context, kind Kind, req *SaveRequest) (*View, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	fields, values, err := s.prepare(ctx, kind, "", req)
	if err != nil {
		return nil, err
	}

	e := &Entity{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     fields.Title,
		Slug:      fields.Slug,
		Excerpt:   fields.Excerpt,
		Content:   fields.Content,
		Published: fields.Published,
		SortOrder: fields.SortOrder,
		Fields:    fields.Fields,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", kind, err)
	}
	if err := s.saveOverlay(ctx, e, values, req.MetaDescription); err != nil {
		return nil, err
	}
	return s.view(ctx, e), nil
}

func (s *Service) Update(ctx context.Context, kind Kind, id string, req *SaveRequest) (*View, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	e, err := s.get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	fields, values, err := s.prepare(ctx, kind, id, req)
	if err != nil {
		return nil, err
	}

	e.Title = fields.Title
	e.Slug = fields.Slug
	e.Excerpt = fields.Excerpt
	e.Content = fields.Content
	e.Published = fields.Published
	e.SortOrder = fields.SortOrder
	e.Fields = fields.Fields
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	if err := s.saveOverlay(ctx, e, values, req.MetaDescription); err != nil {
		return nil, err
	}
	return s.view(ctx, e), nil
}

// prepare validates a save request and resolves its slug. selfID is the
// entity being updated, empty on create.
func (s *Service) prepare(ctx context.Context, kind Kind, selfID string, req *SaveRequest) (EntityFields, map[string]any, error) {
	fields, values, err := req.Split(kind)
	if err != nil {
		return EntityFields{}, nil, err
	}

	fields.Title = strings.TrimSpace(fields.Title)
	if fields.Title == "" {
		return EntityFields{}, nil, validation.Fail("title", "is required")
	}
	if err := s.validator.Validate(fields.Fields, FieldSchema(kind)); err != nil {
		return EntityFields{}, nil, err
	}

	if fields.Slug == "" {
		fields.Slug = fields.Title
	}
	fields.Slug = Slugify(fields.Slug)
	if fields.Slug == "" {
		return EntityFields{}, nil, validation.Fail("slug", "must contain a letter or digit")
	}
	existing, err := s.repo.GetBySlug(ctx, kind, fields.Slug)
	if err != nil {
		return EntityFields{}, nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return EntityFields{}, nil, fmt.Errorf("%w: %s", ErrSlugTaken, fields.Slug)
	}

	if req.ContentBlocks != nil {
		list, err := s.checkBlocks(req.ContentBlocks)
		if err != nil {
			return EntityFields{}, nil, err
		}
		values[KeyContentBlocks] = list
	}
	return fields, values, nil
}

// checkBlocks normalises a submitted block list and rejects schema
// violations. Blocks of unknown type are stored as submitted.
func (s *Service) checkBlocks(list []blocks.Block) ([]blocks.Block, error) {
	list = s.editor.Normalize(list)
	var ve validation.ValidationErrors
	for _, issue := range s.editor.Validate(list) {
		if issue.UnknownType {
			continue
		}
		prefix := fmt.Sprintf("contentBlocks[%d]", issue.Index)
		if len(issue.Details) == 0 {
			ve.Errors = append(ve.Errors, validation.ValidationError{Field: prefix, Message: issue.Message})
			continue
		}
		for _, d := range issue.Details {
			ve.Errors = append(ve.Errors, validation.ValidationError{Field: prefix + "." + d.Field, Message: d.Message})
		}
	}
	if len(ve.Errors) > 0 {
		return nil, &ve
	}
	return list, nil
}

func (s *Service) saveOverlay(ctx context.Context, e *Entity, values map[string]any, manual *string) error {
	coll := e.Kind.MetaCollection()
	set := make(map[string]any, len(values))
	for key, value := range values {
		// An empty relationship id detaches the entity.
		if id, ok := value.(string); ok && id == "" && e.Kind.allowsRelation(key) {
			if _, err := s.overlay.Delete(ctx, coll, e.ID, key); err != nil {
				return s.partial(e, err)
			}
			continue
		}
		set[key] = value
	}
	if err := s.overlay.SetMultiple(ctx, coll, e.ID, set); err != nil {
		return s.partial(e, err)
	}
	if err := s.syncer(e.Kind).ApplyOnSave(ctx, e.ID, e.Excerpt, manual); err != nil {
		return s.partial(e, err)
	}
	return nil
}

func (s *Service) partial(e *Entity, err error) error {
	s.log.Error("entity saved without its attributes", "kind", e.Kind, "entity_id", e.ID, "error", err)
	return fmt.Errorf("%w: %s %s: %w", ErrPartialSave, e.Kind, e.ID, err)
}

func (s *Service) get(ctx context.Context, kind Kind, id string) (*Entity, error) {
	e, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, id, err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

// Get returns the bare entity without its overlay attributes.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (*Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.get(ctx, kind, id)
}

// Load returns the entity merged with its overlay attributes.
func (s *Service) Load(ctx context.Context, kind Kind, id string) (*View, error) {
	e, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, e), nil
}

func (s *Service) LoadBySlug(ctx context.Context, kind Kind, slug string) (*View, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	e, err := s.repo.GetBySlug(ctx, kind, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s %s: %w", kind, slug, err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return s.view(ctx, e), nil
}

// view reads the overlay once and spreads it over the known attributes.
// Keys without a dedicated field land in Meta under their camelCase name.
func (s *Service) view(ctx context.Context, e *Entity) *View {
	v := &View{
		Entity:        *e,
		ContentBlocks: []blocks.Block{},
		Relations:     map[string]string{},
		Meta:          map[string]any{},
	}
	for key, raw := range s.overlay.GetAllRaw(ctx, e.Kind.MetaCollection(), e.ID) {
		switch {
		case key == SEOTitle.Name:
			v.SEOTitle = raw
		case key == SEOKeywords.Name:
			v.SEOKeywords = raw
		case key == MetaDescription.Name || key == MetaDescriptionOverridden.Name:
		case key == ContentBlocks.Name:
			list, err := meta.DecodeInto[[]blocks.Block](raw)
			if err != nil {
				s.log.Warn("unreadable content blocks", "kind", e.Kind, "entity_id", e.ID, "error", err)
				continue
			}
			v.ContentBlocks = s.editor.Normalize(list)
		case e.Kind.allowsRelation(key):
			v.Relations[key] = raw
		default:
			v.Meta[CamelCase(key)] = meta.Decode(raw)
		}
	}

	syncer := s.syncer(e.Kind)
	v.MetaDescription = MetaDescription.Get(ctx, s.overlay, e.Kind.MetaCollection(), e.ID, "")
	v.MetaDescriptionOverridden = syncer.IsOverridden(ctx, e.ID, e.Excerpt)
	v.EffectiveMetaDescription = syncer.Effective(ctx, e.ID, e.Excerpt)
	return v
}

func (s *Service) List(ctx context.Context, kind Kind, opts ListOptions) (*ListResult, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	entities, total, err := s.repo.List(ctx, kind, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return &ListResult{Entities: entities, Total: total, Limit: opts.Limit, Offset: opts.Offset}, nil
}

// Delete removes an entity. With purge its overlay attributes are removed
// first; without it they are left behind for PurgeOrphans.
func (s *Service) Delete(ctx context.Context, kind Kind, id string, purge bool) error {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return err
	}
	if purge {
		if _, err := s.overlay.DeleteAll(ctx, kind.MetaCollection(), id); err != nil {
			return fmt.Errorf("failed to purge attributes of %s %s: %w", kind, id, err)
		}
	}
	if err := s.repo.Delete(ctx, kind, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}

// Related returns the entities of kind whose key attribute equals
// parentID, ordered like List. Ids whose entity no longer exists are
// skipped.
func (s *Service) Related(ctx context.Context, kind Kind, key, parentID string, publishedOnly bool) ([]*Entity, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	ids := s.overlay.FindEntitiesByMeta(ctx, kind.MetaCollection(), key, parentID)
	return s.loadAll(ctx, kind, ids, publishedOnly)
}

func (s *Service) ServicesInGroup(ctx context.Context, groupID string, publishedOnly bool) ([]*Entity, error) {
	return s.Related(ctx, KindService, ServiceGroupID.Name, groupID, publishedOnly)
}

func (s *Service) CaseStudiesForProject(ctx context.Context, projectID string, publishedOnly bool) ([]*Entity, error) {
	return s.Related(ctx, KindCaseStudy, ProjectID.Name, projectID, publishedOnly)
}

// Testimonials returns the testimonials attached to one entity.
func (s *Service) Testimonials(ctx context.Context, kind Kind, id string, publishedOnly bool) ([]*Entity, error) {
	coll := KindTestimonial.MetaCollection()
	byType := s.overlay.FindEntitiesByMeta(ctx, coll, TestimonialEntityType.Name, string(kind))
	byID := s.overlay.FindEntitiesByMeta(ctx, coll, TestimonialEntityID.Name, id)

	want := make(map[string]bool, len(byType))
	for _, tid := range byType {
		want[tid] = true
	}
	var ids []string
	for _, tid := range byID {
		if want[tid] {
			ids = append(ids, tid)
		}
	}
	return s.loadAll(ctx, KindTestimonial, ids, publishedOnly)
}

func (s *Service) loadAll(ctx context.Context, kind Kind, ids []string, publishedOnly bool) ([]*Entity, error) {
	found := make([]*Entity, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			e, err := s.repo.GetByID(gctx, kind, id)
			if err != nil {
				return fmt.Errorf("failed to load %s %s: %w", kind, id, err)
			}
			found[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Entity, 0, len(found))
	for _, e := range found {
		if e == nil || (publishedOnly && !e.Published) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// Blocks returns the entity's stored block list, normalised.
func (s *Service) Blocks(ctx context.Context, kind Kind, id string) ([]blocks.Block, error) {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	list := ContentBlocks.Get(ctx, s.overlay, kind.MetaCollection(), id, nil)
	return s.editor.Normalize(list), nil
}

// ApplyBlockAction runs one editor action against the stored list and
// saves the result. Editor errors and schema violations leave the stored
// list untouched.
func (s *Service) ApplyBlockAction(ctx context.Context, kind Kind, id string, action blocks.Action) ([]blocks.Block, error) {
	current, err := s.Blocks(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	next, err := s.editor.Apply(current, action)
	if err != nil {
		return nil, err
	}
	if next, err = s.checkBlocks(next); err != nil {
		return nil, err
	}
	if err := ContentBlocks.Set(ctx, s.overlay, kind.MetaCollection(), id, next); err != nil {
		return nil, fmt.Errorf("failed to save blocks of %s %s: %w", kind, id, err)
	}
	return next, nil
}

// Meta returns every overlay attribute of an entity, decoded.
func (s *Service) Meta(ctx context.Context, kind Kind, id string) (map[string]any, error) {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return nil, err
	}
	return s.overlay.GetAll(ctx, kind.MetaCollection(), id), nil
}

// SetMeta writes raw overlay attributes. A meta description is treated as
// manual editor input; the override flag itself cannot be written here.
func (s *Service) SetMeta(ctx context.Context, kind Kind, id string, values map[string]any) error {
	e, err := s.Get(ctx, kind, id)
	if err != nil {
		return err
	}

	set := make(map[string]any, len(values))
	var detach []string
	var manual *string
	for key, value := range values {
		switch key {
		case "":
			return validation.Fail("key", "must not be empty")
		case MetaDescriptionOverridden.Name:
			return validation.Fail(key, "is managed by the meta description sync")
		case MetaDescription.Name:
			text, ok := value.(string)
			if !ok && value != nil {
				return validation.Fail(key, "must be a string")
			}
			manual = &text
		case KeyContentBlocks:
			list, err := toBlocks(value)
			if err != nil {
				return validation.Fail(key, "must be a list of blocks")
			}
			if list, err = s.checkBlocks(list); err != nil {
				return err
			}
			set[key] = list
		default:
			if !isRelation(key) {
				set[key] = value
				continue
			}
			ref, ok := value.(string)
			if !ok && value != nil {
				return validation.Fail(key, "must be a string")
			}
			ref, err := relationValue(kind, key, key, ref)
			if err != nil {
				return err
			}
			// An empty relationship id detaches the entity.
			if ref == "" {
				detach = append(detach, key)
				continue
			}
			set[key] = ref
		}
	}

	coll := kind.MetaCollection()
	for _, key := range detach {
		if _, err := s.overlay.Delete(ctx, coll, id, key); err != nil {
			return fmt.Errorf("failed to detach %s of %s %s: %w", key, kind, id, err)
		}
	}
	if err := s.overlay.SetMultiple(ctx, coll, id, set); err != nil {
		return fmt.Errorf("failed to set attributes of %s %s: %w", kind, id, err)
	}
	if manual != nil {
		return s.syncer(kind).SetManual(ctx, e.ID, *manual)
	}
	return nil
}

func toBlocks(value any) ([]blocks.Block, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var list []blocks.Block
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) DeleteMeta(ctx context.Context, kind Kind, id, key string) (bool, error) {
	if _, err := s.Get(ctx, kind, id); err != nil {
		return false, err
	}
	return s.overlay.Delete(ctx, kind.MetaCollection(), id, key)
}

// RevertSEO drops a manual meta description and copies the excerpt back.
func (s *Service) RevertSEO(ctx context.Context, kind Kind, id string) (*View, error) {
	e, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := s.syncer(kind).Revert(ctx, e.ID, e.Excerpt); err != nil {
		return nil, err
	}
	return s.view(ctx, e), nil
}

// PurgeOrphans removes overlay attributes whose entity no longer exists
// and returns how many entities were cleaned up.
func (s *Service) PurgeOrphans(ctx context.Context, kind Kind) (int, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}
	return s.overlay.PurgeOrphans(ctx, kind.MetaCollection(), func(ctx context.Context, id string) (bool, error) {
		e, err := s.repo.GetByID(ctx, kind, id)
		return e != nil, err
	})
}
