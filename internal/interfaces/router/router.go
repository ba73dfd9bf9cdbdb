package router

import (
	"fmt"
	"net/http"
	"strings"

	advisorsvc "carbonmarket/internal/application/advisor"
	"carbonmarket/internal/application/coordinator"
	emailsvc "carbonmarket/internal/application/emails"
	healthsvc "carbonmarket/internal/application/health"
	uploadsvc "carbonmarket/internal/application/uploads"
	"carbonmarket/internal/config"
	"carbonmarket/internal/domain"
	"carbonmarket/internal/infrastructure/database"
	"carbonmarket/internal/infrastructure/sessionstore"
	"carbonmarket/internal/infrastructure/supabase"
	advisorhandler "carbonmarket/internal/interfaces/handlers/advisor"
	authhandler "carbonmarket/internal/interfaces/handlers/auth"
	healthhandler "carbonmarket/internal/interfaces/handlers/health"
	listhandler "carbonmarket/internal/interfaces/handlers/listings"
	mkthandler "carbonmarket/internal/interfaces/handlers/marketplace"
	orderhandler "carbonmarket/internal/interfaces/handlers/orders"
	statehandler "carbonmarket/internal/interfaces/handlers/state"
	uploadhandler "carbonmarket/internal/interfaces/handlers/uploads"
	userhandler "carbonmarket/internal/interfaces/handlers/user"
	"carbonmarket/internal/metrics"
	"carbonmarket/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Runtime is what CreateApp opened; the caller owns closing it.
type Runtime struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *coordinator.Registry
}

func CreateApp(cfg *config.Config) (*fiber.App, *Runtime, error) {
	rt := &Runtime{}

	if cfg.RedisURL != "" {
		rdb, err := sessionstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		rt.Redis = rdb
	}

	var (
		backend coordinator.Backend
		events  listhandler.EventSource
		probes  = healthsvc.Probes{Redis: rt.Redis, Endpoints: map[string]string{}}
	)
	switch cfg.DataBackend {
	case "supabase":
		client, err := supabase.New(supabase.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseKey})
		if err != nil {
			return nil, nil, fmt.Errorf("supabase: %w", err)
		}
		backend = &supabase.Backend{Client: client}
		probes.Endpoints["supabase"] = strings.TrimRight(cfg.SupabaseURL, "/") + "/auth/v1/health"
	case "database", "":
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		rt.DB = db
		store := &database.Store{DB: db}
		backend, events = store, store
		if sqlDB, err := db.DB(); err == nil {
			probes.DB = sqlDB
		}
	default:
		return nil, nil, fmt.Errorf("unknown DATA_BACKEND %q", cfg.DataBackend)
	}

	var notifier coordinator.Notifier
	if cfg.SendinblueAPIKey != "" {
		notifier = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom, AppURL: cfg.AppURL}
	}

	newStore := sessionstore.FileFactory(cfg.SessionDir)
	if rt.Redis != nil {
		newStore = sessionstore.RedisFactory(rt.Redis, cfg.SessionTTL)
	}
	rt.Registry = coordinator.NewRegistry(coordinator.Deps{
		Backend:  backend,
		Notifier: notifier,
		Timeout:  cfg.OperationTimeout,
	}, newStore)
	probes.Sessions = rt.Registry.Len

	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler(rt.Redis),
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())
	app.Use(middleware.Metrics())
	if rt.Redis != nil {
		app.Use(middleware.HealthMarker(rt.Redis))
	}

	hh := &healthhandler.Handlers{Probes: probes, HealthAdminKey: cfg.HealthAdminKey}
	app.Get("/", hh.Dashboard)
	app.Get("/reset", hh.Reset)
	app.Get("/health/json", hh.JSON)
	app.Get("/health/errors", hh.Errors)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1", middleware.Session(rt.Registry, middleware.SessionConfig{
		MaxAge:            cfg.SessionTTL,
		AllowCrossSiteDev: cfg.AllowCrossSiteDev,
		IsProduction:      cfg.IsProduction(),
	}))
	auth := middleware.RequireAuth()
	sellerOnly := middleware.RequireRole(domain.RoleSeller)

	sh := &statehandler.Handlers{}
	api.Get("/state", sh.Get)
	api.Put("/state/view", sh.SetView)
	api.Post("/state/refresh", sh.Refresh)

	ah := &authhandler.Handlers{}
	api.Post("/auth/signup", ah.Signup)
	api.Post("/auth/login", ah.Login)
	api.Post("/auth/logout", ah.Logout)
	api.Put("/auth/role", ah.SetRole)
	api.Get("/auth/me", auth, ah.Me)

	uh := &userhandler.Handlers{}
	api.Patch("/profile", auth, uh.UpdateProfile)

	mh := &mkthandler.Handlers{}
	api.Get("/marketplace/listings", mh.Listings)
	api.Get("/marketplace/listings/:id", mh.Listing)
	api.Get("/marketplace/project-types", mh.ProjectTypes)
	api.Get("/dashboard/stats", auth, mh.Stats)

	lh := &listhandler.Handlers{Source: events}
	api.Post("/listings", auth, sellerOnly, lh.Create)
	api.Get("/listings/mine", auth, sellerOnly, lh.Mine)
	api.Get("/listings/:id/events", auth, lh.Events)

	oh := &orderhandler.Handlers{}
	api.Post("/orders", auth, oh.Purchase)
	api.Get("/orders/mine", auth, oh.Mine)
	api.Get("/orders/deals", auth, oh.Deals)

	adv := advisorsvc.New(advisorsvc.Config{
		APIKey:    cfg.GeminiAPIKey,
		Model:     cfg.GeminiModel,
		BaseURL:   cfg.GeminiBaseURL,
		PerMinute: cfg.GeminiRPM,
	})
	advh := &advisorhandler.Handlers{Advisor: adv}
	api.Get("/advisor/trends", advh.Trends)
	api.Post("/advisor/summary", auth, advh.SummarizeDraft)
	api.Post("/advisor/listings/:id/summary", advh.SummarizeListing)

	var uploads *uploadsvc.Service
	if cfg.SupabaseURL != "" && cfg.SupabaseSecretKey != "" {
		uploads = &uploadsvc.Service{
			Signer: &supabase.Storage{BaseURL: cfg.SupabaseURL, SecretKey: cfg.SupabaseSecretKey},
			Bucket: cfg.MediaBucket,
		}
	}
	uph := &uploadhandler.Handlers{Service: uploads}
	api.Post("/uploads/listing-media", auth, sellerOnly, uph.ListingMedia)

	log.Info().Str("backend", cfg.DataBackend).Bool("redis", rt.Redis != nil).Bool("advisor", adv.Enabled()).
		Bool("email", notifier != nil).Bool("uploads", uploads != nil).Msg("app created")
	return app, rt, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
