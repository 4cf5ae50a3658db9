package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
)

const githubUserURL = "https://api.github.com/user"

// GitHubUser - нужная нам часть ответа GitHub /user.
type GitHubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	AvatarURL string `json:"avatar_url"`
	Bio       string `json:"bio"`
}

// Provider обменивает код авторизации на профиль пользователя.
type Provider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*GitHubUser, error)
}

// GitHubProvider реализует Provider поверх golang.org/x/oauth2.
type GitHubProvider struct {
	config  *oauth2.Config
	userURL string
}

func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		},
		userURL: githubUserURL,
	}
}

func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Get(p.userURL)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if ghUser.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}
	return &ghUser, nil
}

// UpsertUser находит пользователя по externalID или создает нового.
// Профиль существующего пользователя обновляется данными из GitHub.
func UpsertUser(ctx context.Context, users storage.Collection[domain.User], gh *GitHubUser) (*domain.User, error) {
	externalID := strconv.FormatInt(gh.ID, 10)

	refresh := func(u *domain.User) {
		u.Name = gh.Name
		u.Location = gh.Location
		u.AvatarURL = gh.AvatarURL
		u.Bio = gh.Bio
		u.ExternalID = externalID
		u.ExternalUsername = gh.Login
	}

	existing, err := findByExternalID(ctx, users, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return updateProfile(ctx, users, existing.ID, refresh)
	}

	user := &domain.User{}
	refresh(user)
	if _, createErr := users.Create(ctx, user); createErr != nil {
		// Параллельный первый вход того же пользователя успел создать запись
		existing, err := findByExternalID(ctx, users, externalID)
		if err != nil || existing == nil {
			return nil, fmt.Errorf("auth: creating user: %w", createErr)
		}
		return updateProfile(ctx, users, existing.ID, refresh)
	}
	return user, nil
}

func findByExternalID(ctx context.Context, users storage.Collection[domain.User], externalID string) (*domain.User, error) {
	found, err := users.Find(ctx, storage.Filter{domain.RefExternalID: externalID}, storage.FindOptions{Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("auth: looking up user: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func updateProfile(ctx context.Context, users storage.Collection[domain.User], id string, refresh func(*domain.User)) (*domain.User, error) {
	user, err := users.Update(ctx, id, refresh)
	if err != nil {
		return nil, fmt.Errorf("auth: updating user: %w", err)
	}
	return user, nil
}
