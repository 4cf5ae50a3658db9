package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

const stateCookie = "oauth_state"

// Handler обслуживает вход через GitHub и выход.
type Handler struct {
	provider Provider
	sessions Sessions
	users    storage.Collection[domain.User]
	logger   *observability.Logger
	ttl      time.Duration
	secure   bool
}

func NewHandler(provider Provider, sessions Sessions, users storage.Collection[domain.User], logger *observability.Logger, ttl time.Duration, secure bool) *Handler {
	return &Handler{
		provider: provider,
		sessions: sessions,
		users:    users,
		logger:   logger.WithComponent("auth"),
		ttl:      ttl,
		secure:   secure,
	}
}

// Routes монтируется в /auth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/github", h.Login)
	r.Get("/github/callback", h.Callback)
	r.Get("/logout", h.Logout)
	return r
}

// Login перенаправляет на страницу авторизации GitHub.
// state сохраняется в cookie и сверяется в Callback.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	h.clearCookie(w, stateCookie)

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing oauth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.provider.Exchange(ctx, code)
	if err != nil {
		log.Warn("oauth exchange failed", zap.Error(err))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	user, err := UpsertUser(ctx, h.users, ghUser)
	if err != nil {
		log.Error("failed to upsert user", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Issue(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue session", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info("user signed in", zap.String("user_id", user.ID), zap.String("username", user.ExternalUsername))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := h.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			h.logger.WithContext(r.Context()).Warn("failed to revoke session", zap.Error(err))
		}
	}
	h.clearCookie(w, SessionCookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
