package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInvalidSession возвращается для неизвестной, просроченной или поддельной сессии.
var ErrInvalidSession = errors.New("auth: invalid session")

// Sessions выдает и проверяет токены сессии, которые хранятся в cookie.
type Sessions interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
}

const issuer = "devshowcase"

// TokenSessions - сессии без состояния на сервере: JWT, подписанный HS256.
type TokenSessions struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSessions создает TokenSessions. Секрет должен быть не короче 16 символов.
func NewTokenSessions(secret string, ttl time.Duration) (*TokenSessions, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: session ttl must be positive")
	}
	return &TokenSessions{secret: []byte(secret), ttl: ttl}, nil
}

func (s *TokenSessions) Issue(_ context.Context, userID string) (string, error) {
	return s.issue(userID, s.ttl)
}

func (s *TokenSessions) issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    issuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

func (s *TokenSessions) Resolve(_ context.Context, token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidSession)
	}
	return claims.Subject, nil
}

// Revoke ничего не делает: JWT живет до истечения срока, на выходе удаляется только cookie.
func (s *TokenSessions) Revoke(context.Context, string) error {
	return nil
}

const sessionKeyPrefix = "session:"

// RedisSessions хранит сессии в Redis: непрозрачный id -> id пользователя с TTL.
type RedisSessions struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessions создает RedisSessions поверх готового клиента.
func NewRedisSessions(client *redis.Client, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (s *RedisSessions) Issue(ctx context.Context, userID string) (string, error) {
	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+id, userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: storing session: %w", err)
	}
	return id, nil
}

func (s *RedisSessions) Resolve(ctx context.Context, token string) (string, error) {
	userID, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidSession
	}
	if err != nil {
		return "", fmt.Errorf("auth: loading session: %w", err)
	}
	return userID, nil
}

func (s *RedisSessions) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("auth: deleting session: %w", err)
	}
	return nil
}
