package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoCreatedAt = "_createdAt"
	mongoUpdatedAt = "_updatedAt"
)

// MongoStore maps each docstore collection to a Mongo collection. Data
// fields are stored at the top level next to _id and the timestamps.
type MongoStore struct {
	db  *mongo.Database
	now func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db, now: time.Now}
}

// EnsureIndex creates an ascending compound index over fields.
func (s *MongoStore) EnsureIndex(ctx context.Context, collection string, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: mongoField(f), Value: 1})
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys})
	if err != nil {
		return fmt.Errorf("failed to create index on %s: %w", collection, err)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context, collection string, queries ...Query) (*ListResult, error) {
	p, err := compile(queries)
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	for _, f := range p.filters {
		filter[mongoField(f.field)] = f.value
	}

	coll := s.db.Collection(collection)
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", collection, err)
	}

	sortSpec := bson.D{}
	for _, o := range p.orders {
		dir := 1
		if o.desc {
			dir = -1
		}
		sortSpec = append(sortSpec, bson.E{Key: mongoField(o.field), Value: dir})
	}
	sortSpec = append(sortSpec, bson.E{Key: mongoCreatedAt, Value: 1}, bson.E{Key: "_id", Value: 1})

	opts := options.Find().SetSort(sortSpec)
	if p.limit > 0 {
		opts.SetLimit(int64(p.limit))
	}
	if p.offset > 0 {
		opts.SetSkip(int64(p.offset))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []*Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, fromBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return &ListResult{Documents: docs, Total: int(total)}, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := s.now().UTC()
	doc := bson.M{}
	for k, v := range data {
		doc[k] = v
	}
	doc["_id"] = id
	doc[mongoCreatedAt] = now
	doc[mongoUpdatedAt] = now

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
		}
		return nil, err
	}
	return &Document{ID: id, Data: cloneData(data), CreatedAt: now, UpdatedAt: now}, nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	set := bson.M{mongoUpdatedAt: s.now().UTC()}
	for k, v := range data {
		set[k] = v
	}

	var raw bson.M
	err := s.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

// Put replaces the stored fields with data and keeps the original creation
// time. $literal stops string values that start with "$" from being read
// as field paths.
func (s *MongoStore) Put(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	now := s.now().UTC()
	pipeline := mongo.Pipeline{
		{{Key: "$replaceWith", Value: bson.M{
			"$mergeObjects": bson.A{
				bson.M{"$literal": nonNil(data)},
				bson.M{
					"_id":          id,
					mongoCreatedAt: bson.M{"$ifNull": bson.A{"$" + mongoCreatedAt, now}},
					mongoUpdatedAt: now,
				},
			},
		}}},
	}

	var raw bson.M
	err := s.db.Collection(collection).FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		pipeline,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&raw)
	if err != nil {
		return nil, err
	}
	return fromBSON(raw), nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mongoField(field string) string {
	switch field {
	case FieldID:
		return "_id"
	case FieldCreatedAt:
		return mongoCreatedAt
	case FieldUpdatedAt:
		return mongoUpdatedAt
	}
	return field
}

func fromBSON(raw bson.M) *Document {
	doc := &Document{Data: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "_id":
			doc.ID = fmt.Sprint(v)
		case mongoCreatedAt:
			doc.CreatedAt = bsonTime(v)
		case mongoUpdatedAt:
			doc.UpdatedAt = bsonTime(v)
		default:
			doc.Data[k] = normalizeBSON(v)
		}
	}
	return doc
}

func bsonTime(v any) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time()
	case time.Time:
		return t
	}
	return time.Time{}
}

func normalizeBSON(v any) any {
	switch x := v.(type) {
	case bson.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeBSON(e)
		}
		return out
	case primitive.DateTime:
		return x.Time()
	case int32:
		return int64(x)
	}
	return v
}
