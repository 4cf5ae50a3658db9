package auth

import (
	"context"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
)

type contextKey string

const viewerKey = contextKey("viewer")

// WithUser возвращает контекст с текущим пользователем запроса.
// nil означает анонимный запрос.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, viewerKey, user)
}

// UserFromContext извлекает текущего пользователя из контекста.
// Возвращает (nil, false) для анонимного запроса.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(viewerKey).(*domain.User)
	return user, ok && user != nil
}
