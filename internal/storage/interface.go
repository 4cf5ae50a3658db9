package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
)

// ErrNotFound возвращается, если записи с таким id нет.
var ErrNotFound = errors.New("record not found")

// ErrUnsupportedFilter возвращается для фильтра по полю, которого у сущности нет.
var ErrUnsupportedFilter = errors.New("unsupported filter field")

// ErrConflict возвращается, если запись нарушает уникальность или была изменена конкурентно.
var ErrConflict = errors.New("record conflict")

// Filter - конъюнкция условий равенства по ссылочным полям.
// Пустой фильтр выбирает все записи.
type Filter map[domain.Ref]string

// Sort задает порядок выдачи Find.
type Sort int

const (
	SortNone Sort = iota
	SortIDAsc
	SortIDDesc
)

// FindOptions - аргументы для выборки. Limit <= 0 означает "без ограничения".
type FindOptions struct {
	Limit int
	Sort  Sort
}

// Collection определяет контракт коллекции сущностей одного типа.
type Collection[T any] interface {
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, entity *T) (*T, error)
	// Update применяет apply к текущему состоянию записи и сохраняет результат.
	Update(ctx context.Context, id string, apply func(*T)) (*T, error)
	// Delete удаляет запись и возвращает ее последнее состояние.
	Delete(ctx context.Context, id string) (*T, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	Users() Collection[domain.User]
	Posts() Collection[domain.Post]
	Comments() Collection[domain.Comment]
	Likes() Collection[domain.Like]
	Close(ctx context.Context) error
}

// EntityPtr связывает тип значения с его указателем, реализующим domain.Entity.
type EntityPtr[T any] interface {
	*T
	domain.Entity
}

// NewID выдает новый идентификатор в формате ObjectID.
// Лексикографический порядок идентификаторов совпадает с порядком создания.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// Matches проверяет, удовлетворяет ли сущность фильтру.
// Поле, которого у сущности нет, дает ErrUnsupportedFilter.
func Matches(e domain.Entity, filter Filter) (bool, error) {
	matched := true
	for ref, want := range filter {
		got, ok := e.RefValue(ref)
		if !ok {
			return false, UnsupportedFilter(ref)
		}
		if got != want {
			matched = false
		}
	}
	return matched, nil
}

// UnsupportedFilter оборачивает ErrUnsupportedFilter именем поля.
func UnsupportedFilter(ref domain.Ref) error {
	return fmt.Errorf("%w %q", ErrUnsupportedFilter, ref)
}
