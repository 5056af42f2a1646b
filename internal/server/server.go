package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mural-social/apiserver/config"
	"github.com/mural-social/apiserver/internal/db"
	"github.com/mural-social/apiserver/internal/handlers"
	"github.com/mural-social/apiserver/internal/janitor"
	"github.com/mural-social/apiserver/internal/mail"
	"github.com/mural-social/apiserver/internal/mq"
	"github.com/mural-social/apiserver/internal/services"
	"github.com/mural-social/apiserver/internal/storage"
	"github.com/mural-social/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and backing connections.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	worker     *janitor.Worker
	cancel     context.CancelFunc
}

// New constructs a Server with all backends connected and routes
// registered.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWTSecret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	blobs, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	queue, err := newQueue(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	accountRepo := store.NewAccountRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)
	followRepo := store.NewFollowRepository(dbConn)

	hasher := services.NewPasswordHasher()
	tokens := services.NewTokenService([]byte(jwtSecret))
	cleanup := janitor.NewPublisher(queue)

	accountService := services.NewAccountService(accountRepo, postRepo, followRepo, hasher, tokens, cleanup)
	mediaService := services.NewMediaService(accountRepo, blobs, cleanup)
	socialService := services.NewSocialService(accountRepo, followRepo)
	recoveryService := services.NewRecoveryService(accountRepo, hasher, newNotifier(cfg.SMTP))

	assets := handlers.NewAssetResolver(cfg.AssetBaseURL)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/accounts", func(r chi.Router) {
		handlers.AccountRouter(r, accountService, mediaService, tokens, assets)
	})
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, accountService, tokens, assets)
	})
	router.Route("/social", func(r chi.Router) {
		handlers.SocialRouter(r, socialService, tokens)
	})
	router.Route("/recovery", func(r chi.Router) {
		handlers.RecoveryRouter(r, recoveryService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		worker:     janitor.NewWorker(queue, blobs, postRepo, followRepo),
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the cleanup worker and the HTTP server. It blocks until the
// server stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		if err := s.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("cleanup worker stopped: %v", err)
		}
	}()

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the worker and closes all backing connections.
func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

func newStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	switch cfg.Backend {
	case "", "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return storage.NewStorage(client), nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newQueue(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch cfg.Backend {
	case "", "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

func newNotifier(cfg config.SMTPConfig) services.Notifier {
	if strings.TrimSpace(cfg.Host) == "" {
		log.Println("SMTP_HOST not set, recovery tokens will be logged instead of mailed")
		return mail.LogNotifier{}
	}
	notifier, err := mail.NewSMTPNotifier(cfg)
	if err != nil {
		log.Printf("smtp notifier unavailable (%v), falling back to log", err)
		return mail.LogNotifier{}
	}
	return notifier
}
