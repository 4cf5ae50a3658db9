package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// columns сопоставляет ссылочные поля с колонками таблиц.
var columns = map[domain.Ref]string{
	domain.RefAuthor:     "author_id",
	domain.RefPost:       "post_id",
	domain.RefExternalID: "external_id",
}

// Store реализует интерфейс Storage поверх GORM.
type Store struct {
	db       *gorm.DB
	users    *collection[domain.User, *domain.User]
	posts    *collection[domain.Post, *domain.Post]
	comments *collection[domain.Comment, *domain.Comment]
	likes    *collection[domain.Like, *domain.Like]
}

// OpenPostgres подключается к PostgreSQL и выполняет миграцию схемы.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db)
}

// New создает хранилище на уже открытом соединении.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&domain.User{}, &domain.Post{}, &domain.Comment{}, &domain.Like{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		db:       db,
		users:    &collection[domain.User, *domain.User]{db: db},
		posts:    &collection[domain.Post, *domain.Post]{db: db},
		comments: &collection[domain.Comment, *domain.Comment]{db: db},
		likes:    &collection[domain.Like, *domain.Like]{db: db},
	}, nil
}

func (s *Store) Users() storage.Collection[domain.User]       { return s.users }
func (s *Store) Posts() storage.Collection[domain.Post]       { return s.posts }
func (s *Store) Comments() storage.Collection[domain.Comment] { return s.comments }
func (s *Store) Likes() storage.Collection[domain.Like]       { return s.likes }

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type collection[T any, PT storage.EntityPtr[T]] struct {
	db *gorm.DB
}

func (c *collection[T, PT]) where(q *gorm.DB, filter storage.Filter) (*gorm.DB, error) {
	for ref, value := range filter {
		// Поле должно быть у самой сущности: у users, например, нет author_id
		if _, ok := PT(new(T)).RefValue(ref); !ok {
			return nil, storage.UnsupportedFilter(ref)
		}
		column, ok := columns[ref]
		if !ok {
			return nil, storage.UnsupportedFilter(ref)
		}
		q = q.Where(column+" = ?", value)
	}
	return q, nil
}

func (c *collection[T, PT]) Find(ctx context.Context, filter storage.Filter, opts storage.FindOptions) ([]*T, error) {
	q, err := c.where(c.db.WithContext(ctx).Model(new(T)), filter)
	if err != nil {
		return nil, err
	}

	switch opts.Sort {
	case storage.SortIDDesc:
		q = q.Order("id DESC")
	default:
		q = q.Order("id ASC")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var items []*T
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (c *collection[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	var item T
	if err := c.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (c *collection[T, PT]) Create(ctx context.Context, entity *T) (*T, error) {
	PT(entity).SetEntityID(storage.NewID())
	if err := c.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err)
	}
	return entity, nil
}

func (c *collection[T, PT]) Update(ctx context.Context, id string, apply func(*T)) (*T, error) {
	var item T
	// Транзакция и SELECT ... FOR UPDATE: конкурентный Update ждет, а не теряется.
	// SQLite блокировку строк не поддерживает, там хватает блокировки всей базы.
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		apply(&item)
		PT(&item).SetEntityID(id)
		return tx.Save(&item).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (c *collection[T, PT]) Delete(ctx context.Context, id string) (*T, error) {
	var item T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&item).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (c *collection[T, PT]) DeleteMany(ctx context.Context, filter storage.Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, errors.New("refusing to delete without a filter")
	}
	q, err := c.where(c.db.WithContext(ctx), filter)
	if err != nil {
		return 0, err
	}
	res := q.Delete(new(T))
	return res.RowsAffected, res.Error
}

func (c *collection[T, PT]) Count(ctx context.Context, filter storage.Filter) (int64, error) {
	q, err := c.where(c.db.WithContext(ctx).Model(new(T)), filter)
	if err != nil {
		return 0, err
	}
	var n int64
	err = q.Count(&n).Error
	return n, err
}

// translate приводит ошибки gorm к ошибкам storage.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	}
	return err
}
