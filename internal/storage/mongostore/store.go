package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

// fields сопоставляет ссылочные поля с ключами документов.
var fields = map[domain.Ref]string{
	domain.RefAuthor:     "author",
	domain.RefPost:       "post",
	domain.RefExternalID: "externalID",
}

// Store реализует интерфейс Storage поверх MongoDB.
type Store struct {
	client   *mongo.Client
	users    *collection[domain.User, *domain.User]
	posts    *collection[domain.Post, *domain.Post]
	comments *collection[domain.Comment, *domain.Comment]
	likes    *collection[domain.Like, *domain.Like]
}

// New подключается к MongoDB и создает индексы по ссылочным полям.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		users:    newCollection[domain.User](db.Collection("users")),
		posts:    newCollection[domain.Post](db.Collection("posts")),
		comments: newCollection[domain.Comment](db.Collection("comments")),
		likes:    newCollection[domain.Like](db.Collection("likes")),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users.coll, mongo.IndexModel{Keys: bson.D{{Key: "externalID", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)}},
		{s.posts.coll, mongo.IndexModel{Keys: bson.D{{Key: "author", Value: 1}}}},
		{s.comments.coll, mongo.IndexModel{Keys: bson.D{{Key: "post", Value: 1}}}},
		{s.comments.coll, mongo.IndexModel{Keys: bson.D{{Key: "author", Value: 1}}}},
		{s.likes.coll, mongo.IndexModel{Keys: bson.D{{Key: "post", Value: 1}}}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) Users() storage.Collection[domain.User]       { return s.users }
func (s *Store) Posts() storage.Collection[domain.Post]       { return s.posts }
func (s *Store) Comments() storage.Collection[domain.Comment] { return s.comments }
func (s *Store) Likes() storage.Collection[domain.Like]       { return s.likes }

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type collection[T any, PT storage.EntityPtr[T]] struct {
	coll *mongo.Collection
}

func newCollection[T any, PT storage.EntityPtr[T]](coll *mongo.Collection) *collection[T, PT] {
	return &collection[T, PT]{coll: coll}
}

func (c *collection[T, PT]) toBSON(filter storage.Filter) (bson.M, error) {
	m := bson.M{}
	for ref, value := range filter {
		if _, ok := PT(new(T)).RefValue(ref); !ok {
			return nil, storage.UnsupportedFilter(ref)
		}
		key, ok := fields[ref]
		if !ok {
			return nil, storage.UnsupportedFilter(ref)
		}
		m[key] = value
	}
	return m, nil
}

func (c *collection[T, PT]) Find(ctx context.Context, filter storage.Filter, opts storage.FindOptions) ([]*T, error) {
	q, err := c.toBSON(filter)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find()
	switch opts.Sort {
	case storage.SortIDDesc:
		findOpts.SetSort(bson.D{{Key: "_id", Value: -1}})
	default:
		findOpts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := c.coll.Find(ctx, q, findOpts)
	if err != nil {
		return nil, err
	}
	items := []*T{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *collection[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (c *collection[T, PT]) Create(ctx context.Context, entity *T) (*T, error) {
	PT(entity).SetEntityID(storage.NewID())
	PT(entity).SetCreatedAt(time.Now().UTC())
	if _, err := c.coll.InsertOne(ctx, entity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", storage.ErrConflict, err)
		}
		return nil, err
	}
	return entity, nil
}

// Update заменяет документ, только если он не менялся с момента чтения.
// Иначе чтение и apply повторяются на свежей версии.
func (c *collection[T, PT]) Update(ctx context.Context, id string, apply func(*T)) (*T, error) {
	for {
		var snapshot bson.Raw
		if err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&snapshot); err != nil {
			return nil, translate(err)
		}
		var item T
		if err := bson.Unmarshal(snapshot, &item); err != nil {
			return nil, err
		}
		apply(&item)
		PT(&item).SetEntityID(id)

		// Фильтр по всему прочитанному документу: совпадет только неизмененная версия
		var expected bson.D
		if err := bson.Unmarshal(snapshot, &expected); err != nil {
			return nil, err
		}
		res, err := c.coll.ReplaceOne(ctx, expected, &item)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, fmt.Errorf("%w: %v", storage.ErrConflict, err)
			}
			return nil, err
		}
		if res.MatchedCount == 1 {
			return &item, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (c *collection[T, PT]) Delete(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&item); err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (c *collection[T, PT]) DeleteMany(ctx context.Context, filter storage.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("refusing to delete without a filter")
	}
	q, err := c.toBSON(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *collection[T, PT]) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	q, err := c.toBSON(filter)
	if err != nil {
		return 0, err
	}
	return c.coll.CountDocuments(ctx, q)
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	return err
}
