package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/songstudio/studio-api/internal/config"
	"github.com/songstudio/studio-api/internal/domain/account"
	"github.com/songstudio/studio-api/internal/domain/admin"
	"github.com/songstudio/studio-api/internal/domain/credit"
	"github.com/songstudio/studio-api/internal/domain/generation"
	"github.com/songstudio/studio-api/internal/domain/membership"
	"github.com/songstudio/studio-api/internal/domain/payment"
	"github.com/songstudio/studio-api/internal/domain/referral"
	"github.com/songstudio/studio-api/internal/domain/song"
	"github.com/songstudio/studio-api/internal/middleware"
	"github.com/songstudio/studio-api/internal/pkg/database"
	"github.com/songstudio/studio-api/internal/pkg/imaging"
	"github.com/songstudio/studio-api/internal/pkg/jwt"
	"github.com/songstudio/studio-api/internal/pkg/llm"
	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/ratelimit"
	"github.com/songstudio/studio-api/internal/pkg/response"
	"github.com/songstudio/studio-api/internal/pkg/storage"
	"github.com/songstudio/studio-api/internal/pkg/stripe"
	"github.com/songstudio/studio-api/internal/storage/memory"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("storage", cfg.StorageDriver).
		Msg("Starting studio API")

	var st stores
	if cfg.UseMemoryStore() {
		log.Warn().Msg("Using in-memory store, data is lost on restart")
		st = memoryStores(memory.New())
	} else {
		db, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer database.ClosePostgres(db)

		if cfg.AutoMigrate {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			err := database.Migrate(ctx, db)
			cancel()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to apply schema")
			}
		}
		st = postgresStores(db)
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	art, err := storage.New(storage.Config{
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		},
		LocalDir:     cfg.ArtLocalDir,
		LocalBaseURL: cfg.ArtPublicBaseURL,
	})
	if err != nil {
		// Text generation keeps working; art requests answer 503.
		log.Error().Err(err).Msg("Album art storage unavailable")
		art = nil
	}

	stripeClient := stripe.NewClient(stripe.Config{
		BaseURL:    cfg.StripeAPIURL,
		SecretKey:  cfg.StripeSecretKey,
		MaxRetries: 2,
	})
	var gateway payment.Gateway
	if stripeClient.Configured() {
		gateway = stripeClient
	} else {
		log.Warn().Msg("Stripe secret key not set, checkout is disabled")
	}

	model, err := llm.NewClient(context.Background(), llm.Config{
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		TextModel:  cfg.LLMTextModel,
		ImageModel: cfg.LLMImageModel,
		Timeout:    cfg.LLMTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	if cfg.LLMAPIKey == "" {
		log.Warn().Msg("LLM API key not set, generation is disabled")
	}

	r := newRouter(cfg, st, deps{
		redis:   rdb,
		gateway: gateway,
		model:   model,
		art:     art,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// stores groups the per-domain persistence backends.
type stores struct {
	credit    credit.Store
	payments  payment.Store
	referrals referral.Store
	songs     song.Store
	accounts  account.Store
}

func memoryStores(m *memory.Store) stores {
	return stores{
		credit:    m.Credit(),
		payments:  m.Payments(),
		referrals: m.Referrals(),
		songs:     m.Songs(),
		accounts:  m.Accounts(),
	}
}

func postgresStores(db *sqlx.DB) stores {
	return stores{
		credit:    credit.NewPostgresStore(db),
		payments:  payment.NewPostgresStore(db),
		referrals: referral.NewPostgresStore(db),
		songs:     song.NewPostgresStore(db),
		accounts:  account.NewPostgresStore(db),
	}
}

// deps are the external collaborators. Any of them may be nil.
type deps struct {
	redis   *redis.Client
	gateway payment.Gateway
	model   generation.Model
	art     storage.Storage
}

func newRouter(cfg *config.Config, st stores, d deps) chi.Router {
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	authMiddleware := middleware.Auth(jwtService)

	// ---------- Services ----------
	members := membership.New(cfg.SkoolMemberEmails, d.redis)
	creditService := credit.NewService(st.credit, members)
	paymentService := payment.NewService(st.payments, creditService, d.gateway, payment.Config{
		WebhookSecret: cfg.StripeWebhookSecret,
		FrontendURL:   cfg.FrontendURL,
	})
	referralService := referral.NewService(st.referrals, creditService)
	songService := song.NewService(st.songs, creditService, referralService)
	accountService := account.NewService(st.accounts, creditService)
	generationService := generation.NewService(
		creditService,
		d.model,
		d.art,
		imaging.NewProcessor(imaging.DefaultConfig()),
		generation.Costs{Song: cfg.CostSong, Art: cfg.CostArt, Social: cfg.CostSocial},
	)

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(creditService)
	paymentHandler := payment.NewHandler(paymentService)
	referralHandler := referral.NewHandler(referralService)
	songHandler := song.NewHandler(songService)
	accountHandler := account.NewHandler(accountService)
	generationHandler := generation.NewHandler(generationService)
	adminHandler := admin.NewHandler(
		admin.NewCreditHandler(creditService, accountService),
		admin.NewMemberHandler(members),
		cfg.AdminAPIKey,
	)

	limiter := ratelimit.New(d.redis, "studio:ratelimit:gen", cfg.GenerationRateLimit, cfg.GenerationWindow)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			response.OK(w, map[string]string{"message": "pong"})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Mount("/credits", creditHandler.Routes(authMiddleware))
			r.Mount("/payments", paymentHandler.Routes(authMiddleware))
			r.Mount("/referrals", referralHandler.Routes(authMiddleware))
			r.Mount("/songs", songHandler.Routes(authMiddleware))
			r.Mount("/me", accountHandler.Routes(authMiddleware))
		})

		// Model calls outlive the default request timeout.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.LLMTimeout + 15*time.Second))
			r.Mount("/generate", generationHandler.Routes(authMiddleware, middleware.RateLimit(limiter)))
		})
	})

	r.Mount("/webhooks", paymentHandler.WebhookRoutes())
	r.Mount("/api/admin", adminHandler.Routes())

	if local, ok := d.art.(*storage.LocalStorage); ok {
		r.Handle("/art/*", http.StripPrefix("/art/", http.FileServer(http.Dir(local.Root()))))
	}

	return r
}
