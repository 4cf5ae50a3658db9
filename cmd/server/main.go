package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/UkralStul/devshowcase-graphql/graph"
	"github.com/UkralStul/devshowcase-graphql/internal/auth"
	"github.com/UkralStul/devshowcase-graphql/internal/config"
	"github.com/UkralStul/devshowcase-graphql/internal/domain"
	"github.com/UkralStul/devshowcase-graphql/internal/observability"
	"github.com/UkralStul/devshowcase-graphql/internal/storage"
	"github.com/UkralStul/devshowcase-graphql/internal/storage/gormstore"
	"github.com/UkralStul/devshowcase-graphql/internal/storage/inmemory"
	"github.com/UkralStul/devshowcase-graphql/internal/storage/mongostore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	storageType := flag.String("storage", "", "Storage type (in-memory, postgres or mongo); overrides STORAGE")
	flag.Parse()

	if *storageType != "" {
		os.Setenv("STORAGE", *storageType)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", zap.String("storage", cfg.Storage), zap.String("sessions", cfg.SessionBackend))

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("failed to close storage", zap.Error(err))
		}
	}()

	if cfg.SeedData {
		if cfg.Storage != "in-memory" {
			logger.Warn("SEED_DATA is only supported for in-memory storage, skipping")
		} else if err := fillWithMockData(ctx, store, logger); err != nil {
			return err
		}
	}

	sessions, closeSessions, err := openSessions(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	if _, err := graph.Schema(); err != nil {
		return fmt.Errorf("failed to build graphql schema: %w", err)
	}

	metrics := observability.NewMetrics("showcase")
	resolver := &graph.Resolver{
		Storage: store,
		Logger:  logger.WithComponent("graph"),
		Metrics: metrics,
	}

	provider := auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	authHandler := auth.NewHandler(provider, sessions, store.Users(), logger, cfg.SessionTTL, cfg.IsProduction())

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(observability.RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", metrics.Handler())
	router.Mount("/auth", authHandler.Routes())

	router.Group(func(r chi.Router) {
		r.Use(auth.Identify(sessions, store.Users(), logger))
		r.Handle("/", playground.Handler("GraphQL playground", "/query"))
		r.Handle("/query", resolver.Handler())
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("connect for GraphQL playground", zap.String("url", "http://localhost:"+cfg.Port+"/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case "postgres":
		store, err := gormstore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil
	case "mongo":
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		store, err := mongostore.New(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		return store, nil
	default:
		return inmemory.New(), nil
	}
}

func openSessions(cfg *config.Config) (auth.Sessions, func(), error) {
	if cfg.SessionBackend == "redis" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		return auth.NewRedisSessions(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
	}

	sessions, err := auth.NewTokenSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, nil, err
	}
	return sessions, func() {}, nil
}

func fillWithMockData(ctx context.Context, s storage.Storage, logger *observability.Logger) error {
	// 1. Создаем демо-пользователя.
	user, err := s.Users().Create(ctx, &domain.User{
		Name:             "Demo User",
		Location:         "Internet",
		AvatarURL:        "https://avatars.githubusercontent.com/u/0",
		Bio:              "Публикует проекты для примера.",
		ExternalID:       "0",
		ExternalUsername: "demo",
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create user: %w", err)
	}

	// 2. Создаем два поста.
	first, err := s.Posts().Create(ctx, &domain.Post{
		Title:         "GraphQL на Go",
		Description:   "Небольшой сервис с постами, комментариями и лайками.",
		RepoURL:       "https://github.com/example/graphql-go-demo",
		WebsiteURL:    "https://example.com/graphql-go-demo",
		CoverPhotoURL: "https://example.com/graphql-go-demo.png",
		AuthorID:      user.ID,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}
	second, err := s.Posts().Create(ctx, &domain.Post{
		Title:         "Бот для чата",
		Description:   "Пишет напоминания в общий чат.",
		RepoURL:       "https://github.com/example/chat-bot",
		WebsiteURL:    "https://example.com/chat-bot",
		CoverPhotoURL: "https://example.com/chat-bot.png",
		AuthorID:      user.ID,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create second post: %w", err)
	}

	// 3. Комментарий и лайк к первому посту.
	if _, err := s.Comments().Create(ctx, &domain.Comment{
		Content:  "Отличный проект!",
		PostID:   first.ID,
		AuthorID: user.ID,
	}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}
	if _, err := s.Likes().Create(ctx, &domain.Like{PostID: first.ID, AuthorID: user.ID}); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create like: %w", err)
	}

	logger.Info("mock data filled",
		zap.String("user_id", user.ID),
		zap.String("post_id", first.ID),
		zap.String("second_post_id", second.ID),
	)
	return nil
}
