// Package mongo provides the document-store engine. Filter trees
// translate to native query documents, and materialized views run as
// registered aggregation pipelines. The engine satisfies
// query.QueryEngine so tooling can hold any engine kind, but the SQL
// surface reports UnsupportedError; data access goes through the
// document methods.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodrv "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/syssam/prax"
	"github.com/syssam/prax/dialect"
	"github.com/syssam/prax/filter"
	"github.com/syssam/prax/query"
)

// Engine runs document operations against one database.
type Engine struct {
	client *mongodrv.Client
	db     *mongodrv.Database

	mu    sync.RWMutex
	views map[string]View
}

var _ query.QueryEngine = (*Engine)(nil)

// View names a materialized aggregation: Pipeline runs on the Source
// collection and the result lands in the Target collection, merged by
// _id or replaced wholesale.
type View struct {
	Source   string
	Pipeline mongodrv.Pipeline
	Target   string
	Replace  bool
}

// Open connects a client and verifies the server is reachable.
func Open(ctx context.Context, uri, database string) (*Engine, error) {
	client, err := mongodrv.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, prax.NewDatabaseError(dialect.Mongo, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, prax.NewDatabaseError(dialect.Mongo, err)
	}
	return NewEngine(client, database), nil
}

// NewEngine wraps a connected client.
func NewEngine(client *mongodrv.Client, database string) *Engine {
	return &Engine{
		client: client,
		db:     client.Database(database),
		views:  make(map[string]View),
	}
}

// Database returns the underlying database handle.
func (e *Engine) Database() *mongodrv.Database { return e.db }

// Dialect implements part of dialect.Driver.
func (e *Engine) Dialect() string { return dialect.Mongo }

// Close disconnects the client.
func (e *Engine) Close() error {
	return e.client.Disconnect(context.Background())
}

// FindOption narrows a Find.
type FindOption func(*options.FindOptionsBuilder)

// WithLimit caps the number of returned documents.
func WithLimit(n int64) FindOption {
	return func(o *options.FindOptionsBuilder) { o.SetLimit(n) }
}

// WithSkip skips the first n matches.
func WithSkip(n int64) FindOption {
	return func(o *options.FindOptionsBuilder) { o.SetSkip(n) }
}

// WithSort orders results by one field.
func WithSort(field string, descending bool) FindOption {
	dir := 1
	if descending {
		dir = -1
	}
	return func(o *options.FindOptionsBuilder) {
		o.SetSort(bson.D{{Key: field, Value: dir}})
	}
}

// Find returns the documents matching the filter tree.
func (e *Engine) Find(ctx context.Context, collection string, f *filter.Filter, opts ...FindOption) ([]query.Row, error) {
	match, err := Translate(f)
	if err != nil {
		return nil, err
	}
	fo := options.Find()
	for _, opt := range opts {
		opt(fo)
	}
	cur, err := e.db.Collection(collection).Find(ctx, match, fo)
	if err != nil {
		return nil, mapError(err)
	}
	defer cur.Close(ctx)
	var out []query.Row
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, mapError(err)
		}
		out = append(out, rowFromDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// FindOne returns the single document matching the filter tree.
func (e *Engine) FindOne(ctx context.Context, collection string, f *filter.Filter) (query.Row, error) {
	match, err := Translate(f)
	if err != nil {
		return query.Row{}, err
	}
	var doc bson.D
	if err := e.db.Collection(collection).FindOne(ctx, match).Decode(&doc); err != nil {
		return query.Row{}, mapError(err)
	}
	return rowFromDoc(doc), nil
}

// CountDocs counts the documents matching the filter tree.
func (e *Engine) CountDocs(ctx context.Context, collection string, f *filter.Filter) (int64, error) {
	match, err := Translate(f)
	if err != nil {
		return 0, err
	}
	n, err := e.db.Collection(collection).CountDocuments(ctx, match)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// InsertOne writes one document and returns its assigned id under _id.
func (e *Engine) InsertOne(ctx context.Context, collection string, doc any) (query.Row, error) {
	res, err := e.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return query.Row{}, mapError(err)
	}
	return query.NewRow([]string{"_id"}, []any{res.InsertedID}), nil
}

// UpdateMany sets fields on every document matching the filter tree and
// reports how many changed.
func (e *Engine) UpdateMany(ctx context.Context, collection string, f *filter.Filter, set map[string]any) (int64, error) {
	match, err := Translate(f)
	if err != nil {
		return 0, err
	}
	res, err := e.db.Collection(collection).UpdateMany(ctx, match, bson.M{"$set": set})
	if err != nil {
		return 0, mapError(err)
	}
	return res.ModifiedCount, nil
}

// DeleteMany removes every document matching the filter tree.
func (e *Engine) DeleteMany(ctx context.Context, collection string, f *filter.Filter) (int64, error) {
	match, err := Translate(f)
	if err != nil {
		return 0, err
	}
	res, err := e.db.Collection(collection).DeleteMany(ctx, match)
	if err != nil {
		return 0, mapError(err)
	}
	return res.DeletedCount, nil
}

// RegisterView registers a materialized aggregation under name.
func (e *Engine) RegisterView(name string, v View) error {
	if v.Source == "" || v.Target == "" {
		return fmt.Errorf("prax: view %q needs source and target collections", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.views[name] = v
	return nil
}

// RefreshMaterializedView implements query.QueryEngine. The registered
// pipeline runs on the source collection and lands in the target.
// Merging is incremental on the server, so the concurrent flag has no
// separate meaning here.
func (e *Engine) RefreshMaterializedView(ctx context.Context, name string, _ bool) error {
	e.mu.RLock()
	v, ok := e.views[name]
	e.mu.RUnlock()
	if !ok {
		return prax.NewNotFoundErrorWithID("view", name)
	}
	pipeline := make(mongodrv.Pipeline, len(v.Pipeline), len(v.Pipeline)+1)
	copy(pipeline, v.Pipeline)
	if v.Replace {
		pipeline = append(pipeline, bson.D{{Key: "$out", Value: v.Target}})
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$merge", Value: bson.D{
			{Key: "into", Value: v.Target},
			{Key: "whenMatched", Value: "replace"},
			{Key: "whenNotMatched", Value: "insert"},
		}}})
	}
	cur, err := e.db.Collection(v.Source).Aggregate(ctx, pipeline)
	if err != nil {
		return mapError(err)
	}
	return cur.Close(ctx)
}

// The compiled-SQL surface is not expressible on a document store.

// QueryMany implements query.QueryEngine.
func (e *Engine) QueryMany(context.Context, string, []any) ([]query.Row, error) {
	return nil, errSQL()
}

// QueryOne implements query.QueryEngine.
func (e *Engine) QueryOne(context.Context, string, []any) (query.Row, error) {
	return query.Row{}, errSQL()
}

// QueryOptional implements query.QueryEngine.
func (e *Engine) QueryOptional(context.Context, string, []any) (query.Row, bool, error) {
	return query.Row{}, false, errSQL()
}

// ExecInsert implements query.QueryEngine.
func (e *Engine) ExecInsert(context.Context, string, []any) (query.Row, error) {
	return query.Row{}, errSQL()
}

// ExecUpdate implements query.QueryEngine.
func (e *Engine) ExecUpdate(context.Context, string, []any) ([]query.Row, error) {
	return nil, errSQL()
}

// ExecDelete implements query.QueryEngine.
func (e *Engine) ExecDelete(context.Context, string, []any) (int64, error) {
	return 0, errSQL()
}

// ExecRaw implements query.QueryEngine.
func (e *Engine) ExecRaw(context.Context, string, []any) (int64, error) {
	return 0, errSQL()
}

// Count implements query.QueryEngine.
func (e *Engine) Count(context.Context, string, []any) (int64, error) {
	return 0, errSQL()
}

func errSQL() error { return prax.NewUnsupportedError(dialect.Mongo, "sql queries") }

func rowFromDoc(doc bson.D) query.Row {
	cols := make([]string, len(doc))
	vals := make([]any, len(doc))
	for i, el := range doc {
		cols[i] = el.Key
		vals[i] = el.Value
	}
	return query.NewRow(cols, vals)
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongodrv.ErrNoDocuments):
		return prax.NewNotFoundError("document")
	case mongodrv.IsDuplicateKeyError(err):
		return prax.NewConstraintError("duplicate key", err)
	}
	return prax.NewDatabaseError(dialect.Mongo, err)
}

var cmpOps = map[filter.Op]string{
	filter.OpEquals:    "$eq",
	filter.OpNotEquals: "$ne",
	filter.OpLt:        "$lt",
	filter.OpLte:       "$lte",
	filter.OpGt:        "$gt",
	filter.OpGte:       "$gte",
}

// Translate renders a filter tree as a query document. None translates
// to the empty document, which matches everything. The translation
// follows the SQL rendering: None children of compounds drop out,
// matching In over an empty list matches nothing and NotIn everything,
// and the substring operators compare case sensitively.
func Translate(f *filter.Filter) (bson.D, error) {
	if f.IsNone() {
		return bson.D{}, nil
	}
	switch f.Op {
	case filter.OpAnd, filter.OpOr:
		live := make(bson.A, 0, len(f.Children))
		for _, c := range f.Children {
			if c.IsNone() {
				continue
			}
			doc, err := Translate(c)
			if err != nil {
				return nil, err
			}
			live = append(live, doc)
		}
		switch len(live) {
		case 0:
			return bson.D{}, nil
		case 1:
			return live[0].(bson.D), nil
		}
		op := "$and"
		if f.Op == filter.OpOr {
			op = "$or"
		}
		return bson.D{{Key: op, Value: live}}, nil
	case filter.OpNot:
		if len(f.Children) == 0 || f.Children[0].IsNone() {
			return bson.D{}, nil
		}
		child, err := Translate(f.Children[0])
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{child}}}, nil
	case filter.OpIsNull:
		return operand(f.Field, "$eq", nil), nil
	case filter.OpIsNotNull:
		return operand(f.Field, "$ne", nil), nil
	case filter.OpIn, filter.OpNotIn:
		op := "$in"
		if f.Op == filter.OpNotIn {
			op = "$nin"
		}
		elems := make(bson.A, len(f.Values))
		for i, v := range f.Values {
			elems[i] = v.Arg()
		}
		return operand(f.Field, op, elems), nil
	case filter.OpEquals, filter.OpNotEquals, filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		return operand(f.Field, cmpOps[f.Op], f.Value.Arg()), nil
	case filter.OpContains, filter.OpStartsWith, filter.OpEndsWith:
		pattern := regexp.QuoteMeta(textOf(f.Value))
		switch f.Op {
		case filter.OpStartsWith:
			pattern = "^" + pattern
		case filter.OpEndsWith:
			pattern += "$"
		}
		return bson.D{{Key: f.Field, Value: bson.Regex{Pattern: pattern}}}, nil
	default:
		return nil, fmt.Errorf("prax: filter op %s has no document form", f.Op)
	}
}

func operand(field, op string, v any) bson.D {
	return bson.D{{Key: field, Value: bson.D{{Key: op, Value: v}}}}
}

func textOf(v filter.Value) string {
	if s, ok := v.Arg().(string); ok {
		return s
	}
	return fmt.Sprint(v.Arg())
}
