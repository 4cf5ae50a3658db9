package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	users    *collection[domain.User, *domain.User]
	posts    *collection[domain.Post, *domain.Post]
	comments *collection[domain.Comment, *domain.Comment]
	likes    *collection[domain.Like, *domain.Like]
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:    newCollection[domain.User](),
		posts:    newCollection[domain.Post](),
		comments: newCollection[domain.Comment](),
		likes:    newCollection[domain.Like](),
	}
}

func (s *Store) Users() storage.Collection[domain.User]       { return s.users }
func (s *Store) Posts() storage.Collection[domain.Post]       { return s.posts }
func (s *Store) Comments() storage.Collection[domain.Comment] { return s.comments }
func (s *Store) Likes() storage.Collection[domain.Like]       { return s.likes }

func (s *Store) Close(context.Context) error { return nil }

// collection хранит копии записей, чтобы вызывающий код не мог изменить их в обход Update.
type collection[T any, PT storage.EntityPtr[T]] struct {
	mu    sync.RWMutex
	items map[string]*T
	now   func() time.Time
}

func newCollection[T any, PT storage.EntityPtr[T]]() *collection[T, PT] {
	return &collection[T, PT]{
		items: make(map[string]*T),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func clone[T any](v *T) *T {
	c := *v
	return &c
}

func (c *collection[T, PT]) Find(ctx context.Context, filter storage.Filter, opts storage.FindOptions) ([]*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*T, 0, len(c.items))
	for _, item := range c.items {
		ok, err := storage.Matches(PT(item), filter)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, clone(item))
		}
	}

	// Без явной сортировки отдаем в порядке создания, как это делает документное хранилище
	switch opts.Sort {
	case storage.SortIDDesc:
		sort.Slice(result, func(i, j int) bool {
			return PT(result[i]).EntityID() > PT(result[j]).EntityID()
		})
	default:
		sort.Slice(result, func(i, j int) bool {
			return PT(result[i]).EntityID() < PT(result[j]).EntityID()
		})
	}

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (c *collection[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(item), nil
}

func (c *collection[T, PT]) Create(ctx context.Context, entity *T) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkUnique(PT(entity), ""); err != nil {
		return nil, err
	}
	PT(entity).SetEntityID(storage.NewID())
	PT(entity).SetCreatedAt(c.now())
	c.items[PT(entity).EntityID()] = clone(entity)
	return entity, nil
}

// checkUnique повторяет уникальный индекс по externalID из SQL и Mongo хранилищ.
// Вызывается под c.mu, запись с id == self не считается.
func (c *collection[T, PT]) checkUnique(entity PT, self string) error {
	value, ok := entity.RefValue(domain.RefExternalID)
	if !ok || value == "" {
		return nil
	}
	for id, item := range c.items {
		if id == self {
			continue
		}
		if other, _ := PT(item).RefValue(domain.RefExternalID); other == value {
			return fmt.Errorf("%w: externalID %q already exists", storage.ErrConflict, value)
		}
	}
	return nil
}

func (c *collection[T, PT]) Update(ctx context.Context, id string, apply func(*T)) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	updated := clone(item)
	apply(updated)
	// id не меняется, даже если apply его перезаписал
	PT(updated).SetEntityID(id)
	if err := c.checkUnique(PT(updated), id); err != nil {
		return nil, err
	}
	c.items[id] = updated
	return clone(updated), nil
}

func (c *collection[T, PT]) Delete(ctx context.Context, id string) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	delete(c.items, id)
	return item, nil
}

func (c *collection[T, PT]) DeleteMany(ctx context.Context, filter storage.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("refusing to delete without a filter")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Сначала проверяем фильтр целиком, чтобы ошибка не оставила удаление наполовину
	var ids []string
	for id, item := range c.items {
		ok, err := storage.Matches(PT(item), filter)
		if err != nil {
			return 0, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(c.items, id)
	}
	return int64(len(ids)), nil
}

func (c *collection[T, PT]) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, item := range c.items {
		ok, err := storage.Matches(PT(item), filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}
