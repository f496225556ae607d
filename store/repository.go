package store

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewRecordNotFound is the 404-category error every single-record miss
// maps to.
func NewRecordNotFound() *goerrors.Error {
	return goerrors.New("No document found with that ID", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// IsRecordNotFound reports whether err is a record-not-found error.
func IsRecordNotFound(err error) bool {
	return goerrors.IsNotFound(err)
}

// ModelHandlers supplies the record-type plumbing the generic
// repository needs: construction and identifier access.
type ModelHandlers[T any] struct {
	NewRecord func() T
	GetID     func(T) primitive.ObjectID
	SetID     func(T, primitive.ObjectID)
}

// Repository is the single data-access entry point for one collection.
// It owns no business rules; callers layer those on top.
type Repository[T any] struct {
	coll     *mongo.Collection
	handlers ModelHandlers[T]
}

func NewRepository[T any](db *mongo.Database, collection string, handlers ModelHandlers[T]) *Repository[T] {
	return &Repository[T]{
		coll:     db.Collection(collection),
		handlers: handlers,
	}
}

// Collection exposes the underlying handle for index management.
func (r *Repository[T]) Collection() *mongo.Collection {
	return r.coll
}

// Create inserts the record, assigning an identifier when the record
// carries none. Unique-index violations surface as conflict errors.
func (r *Repository[T]) Create(ctx context.Context, record T) (T, error) {
	if r.handlers.GetID(record).IsZero() {
		r.handlers.SetID(record, primitive.NewObjectID())
	}

	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		var zero T
		if mongo.IsDuplicateKeyError(err) {
			return zero, goerrors.Wrap(err, goerrors.CategoryConflict, "Duplicate field value. Please use another value!").
				WithCode(goerrors.CodeBadRequest)
		}
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert document")
	}

	return record, nil
}

// FindByID reads a single record by its hex identifier, constrained by
// any extra filter conditions.
func (r *Repository[T]) FindByID(ctx context.Context, id string, extra bson.M, opts ...*options.FindOneOptions) (T, error) {
	var zero T

	oid, err := parseObjectID(id)
	if err != nil {
		return zero, err
	}

	filter := bson.M{"_id": oid}
	for k, v := range extra {
		filter[k] = v
	}

	return r.FindOne(ctx, filter, opts...)
}

// FindOne reads a single record by arbitrary conditions. Projection
// options let callers pull normally-hidden fields.
func (r *Repository[T]) FindOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (T, error) {
	record := r.handlers.NewRecord()

	err := r.coll.FindOne(ctx, filter, opts...).Decode(record)
	if err != nil {
		var zero T
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return zero, NewRecordNotFound()
		}
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read document")
	}

	return record, nil
}

// UpdateByID applies a $set patch and returns the updated record.
func (r *Repository[T]) UpdateByID(ctx context.Context, id string, set bson.M, extra bson.M) (T, error) {
	return r.PatchByID(ctx, id, set, nil, extra)
}

// PatchByID applies a partial $set/$unset mutation and returns the
// updated record. Partial mutations intentionally bypass full-document
// validation; the callers own the shape of what they write.
func (r *Repository[T]) PatchByID(ctx context.Context, id string, set, unset bson.M, extra bson.M) (T, error) {
	var zero T

	oid, err := parseObjectID(id)
	if err != nil {
		return zero, err
	}

	filter := bson.M{"_id": oid}
	for k, v := range extra {
		filter[k] = v
	}

	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return r.FindOne(ctx, filter)
	}

	record := r.handlers.NewRecord()
	err = r.coll.FindOneAndUpdate(
		ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(record)

	if err != nil {
		if goerrors.Is(err, mongo.ErrNoDocuments) {
			return zero, NewRecordNotFound()
		}
		if mongo.IsDuplicateKeyError(err) {
			return zero, goerrors.Wrap(err, goerrors.CategoryConflict, "Duplicate field value. Please use another value!").
				WithCode(goerrors.CodeBadRequest)
		}
		return zero, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update document")
	}

	return record, nil
}

// DeleteByID removes a single record, reporting not-found misses.
func (r *Repository[T]) DeleteByID(ctx context.Context, id string, extra bson.M) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": oid}
	for k, v := range extra {
		filter[k] = v
	}

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete document")
	}
	if res.DeletedCount == 0 {
		return NewRecordNotFound()
	}

	return nil
}

// Find executes a composed list query.
func (r *Repository[T]) Find(ctx context.Context, q ListQuery) ([]T, error) {
	cur, err := r.coll.Find(ctx, q.Filter, q.FindOptions())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to execute list query")
	}
	defer cur.Close(ctx)

	records := []T{}
	for cur.Next(ctx) {
		record := r.handlers.NewRecord()
		if err := cur.Decode(record); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode document")
		}
		records = append(records, record)
	}

	if err := cur.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "cursor error during list query")
	}

	return records, nil
}

// UpdateMany applies an update to every record matching the filter.
func (r *Repository[T]) UpdateMany(ctx context.Context, filter, update bson.M) (int64, error) {
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update documents")
	}
	return res.ModifiedCount, nil
}

// Aggregate runs a pipeline pass-through, decoding into results.
func (r *Repository[T]) Aggregate(ctx context.Context, pipeline any, results any) error {
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "Aggregation failed")
	}
	defer cur.Close(ctx)

	if err := cur.All(ctx, results); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "Aggregation failed")
	}

	return nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, goerrors.New("Invalid _id: "+id, goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}
	return oid, nil
}
