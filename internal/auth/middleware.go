package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

// SessionCookie - имя cookie с токеном сессии.
const SessionCookie = "session"

// Identify кладет текущего пользователя в контекст запроса.
// Запрос без сессии или с недействительной сессией продолжается как анонимный.
func Identify(sessions Sessions, users storage.Collection[domain.User], logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			userID, err := sessions.Resolve(ctx, cookie.Value)
			if err != nil {
				if !errors.Is(err, ErrInvalidSession) {
					logger.WithContext(ctx).Warn("failed to resolve session", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				if !errors.Is(err, storage.ErrNotFound) {
					logger.WithContext(ctx).Warn("failed to load session user", zap.Error(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}
