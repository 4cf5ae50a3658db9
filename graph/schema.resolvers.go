package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/UkralStul/devshowcase-graphql/graph/model"
	"github.com/UkralStul/devshowcase-graphql/internal/apperror"
	"github.com/UkralStul/devshowcase-graphql/internal/auth"
	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

const (
	// postsPageSize - сколько постов отдает запрос posts. Курсора нет, всегда первая страница.
	postsPageSize = 20

	maxCommentLength = 2000
)

// === User Resolvers ===

func (r *userResolver) Posts(ctx context.Context, obj *domain.User) ([]*domain.Post, error) {
	return r.Storage.Posts().Find(ctx, storage.Filter{domain.RefAuthor: obj.ID}, storage.FindOptions{})
}

func (r *userResolver) Comments(ctx context.Context, obj *domain.User) ([]*domain.Comment, error) {
	return r.Storage.Comments().Find(ctx, storage.Filter{domain.RefAuthor: obj.ID}, storage.FindOptions{})
}

// === Post Resolvers ===

// Author и остальные связи резолвятся отдельным запросом к хранилищу на каждый
// родительский объект. Батчинга и кэша нет: каждое поле читается заново.
func (r *postResolver) Author(ctx context.Context, obj *domain.Post) (*domain.User, error) {
	return lookup(ctx, r.Storage.Users(), obj.AuthorID)
}

func (r *postResolver) Comments(ctx context.Context, obj *domain.Post) ([]*domain.Comment, error) {
	return r.Storage.Comments().Find(ctx, storage.Filter{domain.RefPost: obj.ID}, storage.FindOptions{})
}

func (r *postResolver) NumLikes(ctx context.Context, obj *domain.Post) (int, error) {
	n, err := r.Storage.Likes().Count(ctx, storage.Filter{domain.RefPost: obj.ID})
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return int(n), nil
}

// === Comment Resolvers ===

func (r *commentResolver) Post(ctx context.Context, obj *domain.Comment) (*domain.Post, error) {
	return lookup(ctx, r.Storage.Posts(), obj.PostID)
}

func (r *commentResolver) Author(ctx context.Context, obj *domain.Comment) (*domain.User, error) {
	return lookup(ctx, r.Storage.Users(), obj.AuthorID)
}

// === Like Resolvers ===

func (r *likeResolver) Post(ctx context.Context, obj *domain.Like) (*domain.Post, error) {
	return lookup(ctx, r.Storage.Posts(), obj.PostID)
}

func (r *likeResolver) Author(ctx context.Context, obj *domain.Like) (*domain.User, error) {
	return lookup(ctx, r.Storage.Users(), obj.AuthorID)
}

// === Query Resolvers ===

// User возвращает текущего пользователя запроса без обращения к хранилищу.
func (r *queryResolver) User(ctx context.Context) (*domain.User, error) {
	user, _ := auth.UserFromContext(ctx)
	return user, nil
}

func (r *queryResolver) Posts(ctx context.Context) ([]*domain.Post, error) {
	return r.Storage.Posts().Find(ctx, nil, storage.FindOptions{Limit: postsPageSize, Sort: storage.SortIDDesc})
}

func (r *queryResolver) Post(ctx context.Context, id string) (*domain.Post, error) {
	return lookup(ctx, r.Storage.Posts(), id)
}

func (r *queryResolver) Comment(ctx context.Context, id string) (*domain.Comment, error) {
	return lookup(ctx, r.Storage.Comments(), id)
}

func (r *queryResolver) Like(ctx context.Context, id string) (*domain.Like, error) {
	return lookup(ctx, r.Storage.Likes(), id)
}

// === Mutation Resolvers ===

// Проверка личности есть только у create-мутаций: они проставляют автора.
// update/delete владельца не проверяют.

func (r *mutationResolver) CreatePost(ctx context.Context, input model.NewPost) (*domain.Post, error) {
	viewer, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, apperror.AuthRequired("createPost")
	}

	required := []struct{ field, value string }{
		{"title", input.Title},
		{"description", input.Description},
		{"repoURL", input.RepoURL},
		{"websiteURL", input.WebsiteURL},
		{"coverPhotoURL", input.CoverPhotoURL},
	}
	for _, arg := range required {
		if strings.TrimSpace(arg.value) == "" {
			return nil, apperror.ValidationFailed(arg.field, arg.field+" must not be empty")
		}
	}

	post := &domain.Post{
		Title:         input.Title,
		Description:   input.Description,
		RepoURL:       input.RepoURL,
		WebsiteURL:    input.WebsiteURL,
		CoverPhotoURL: input.CoverPhotoURL,
		AuthorID:      viewer.ID,
	}
	return r.Storage.Posts().Create(ctx, post)
}

func (r *mutationResolver) UpdatePost(ctx context.Context, id string, patch model.PostPatch) (*domain.Post, error) {
	post, err := r.Storage.Posts().Update(ctx, id, func(p *domain.Post) {
		assign(&p.Title, patch.Title)
		assign(&p.Description, patch.Description)
		assign(&p.RepoURL, patch.RepoURL)
		assign(&p.WebsiteURL, patch.WebsiteURL)
		assign(&p.CoverPhotoURL, patch.CoverPhotoURL)
	})
	if err != nil {
		return nil, notFound("post", id, err)
	}
	return post, nil
}

// DeletePost удаляет комментарии и лайки поста, затем сам пост.
// Это три независимые операции без транзакции.
func (r *mutationResolver) DeletePost(ctx context.Context, id string) (*domain.Post, error) {
	comments, err := r.Storage.Comments().DeleteMany(ctx, storage.Filter{domain.RefPost: id})
	if err != nil {
		return nil, fmt.Errorf("failed to delete post comments: %w", err)
	}
	likes, err := r.Storage.Likes().DeleteMany(ctx, storage.Filter{domain.RefPost: id})
	if err != nil {
		return nil, fmt.Errorf("failed to delete post likes: %w", err)
	}

	post, err := r.Storage.Posts().Delete(ctx, id)
	if err != nil {
		return nil, notFound("post", id, err)
	}

	if r.Logger != nil {
		r.Logger.WithContext(ctx).Info("post deleted",
			zap.String("post_id", id),
			zap.Int64("comments_deleted", comments),
			zap.Int64("likes_deleted", likes),
		)
	}
	return post, nil
}

func (r *mutationResolver) CreateComment(ctx context.Context, input model.NewComment) (*domain.Comment, error) {
	viewer, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, apperror.AuthRequired("createComment")
	}
	if err := validateContent(input.Content); err != nil {
		return nil, err
	}
	if err := r.requirePost(ctx, input.PostID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		Content:  input.Content,
		PostID:   input.PostID,
		AuthorID: viewer.ID,
	}
	return r.Storage.Comments().Create(ctx, comment)
}

func (r *mutationResolver) UpdateComment(ctx context.Context, id string, content string) (*domain.Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	comment, err := r.Storage.Comments().Update(ctx, id, func(c *domain.Comment) {
		c.Content = content
	})
	if err != nil {
		return nil, notFound("comment", id, err)
	}
	return comment, nil
}

func (r *mutationResolver) DeleteComment(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := r.Storage.Comments().Delete(ctx, id)
	if err != nil {
		return nil, notFound("comment", id, err)
	}
	return comment, nil
}

// CreateLike не проверяет, лайкал ли пользователь пост раньше.
func (r *mutationResolver) CreateLike(ctx context.Context, postID string) (*domain.Like, error) {
	viewer, ok := auth.UserFromContext(ctx)
	if !ok {
		return nil, apperror.AuthRequired("createLike")
	}
	if err := r.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	return r.Storage.Likes().Create(ctx, &domain.Like{PostID: postID, AuthorID: viewer.ID})
}

// DeleteLike удаляет лайк по его собственному id, а не по паре (пользователь, пост).
func (r *mutationResolver) DeleteLike(ctx context.Context, id string) (*domain.Like, error) {
	like, err := r.Storage.Likes().Delete(ctx, id)
	if err != nil {
		return nil, notFound("like", id, err)
	}
	return like, nil
}

// === Helpers ===

func (r *mutationResolver) requirePost(ctx context.Context, postID string) error {
	if _, err := r.Storage.Posts().FindByID(ctx, postID); err != nil {
		return notFound("post", postID, err)
	}
	return nil
}

// lookup возвращает (nil, nil), если записи нет: для чтения отсутствие не ошибка.
func lookup[T any](ctx context.Context, c storage.Collection[T], id string) (*T, error) {
	item, err := c.FindByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

// notFound превращает storage.ErrNotFound в ошибку NOT_FOUND, остальные ошибки оборачивает.
func notFound(resource, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("%s %s: %w", resource, id, err)
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperror.ValidationFailed("content", "comment content cannot be empty")
	}
	if len(content) > maxCommentLength {
		return apperror.ValidationFailed("content", "comment content is too long")
	}
	return nil
}
