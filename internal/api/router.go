package api

import (
	"net/http"

	"blog_backend/internal/api/handler"
	"blog_backend/internal/api/middleware"
	"blog_backend/internal/app/query"
	"blog_backend/internal/app/service"
	"blog_backend/internal/platform/config"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

func NewRouter(
	cfg *config.Config,
	creds *service.CredentialStore,
	authService *service.AuthService,
	userService *service.UserService,
	blogService *service.BlogService,
	taxonomyService *service.TaxonomyService,
	loginLimiter middleware.RateLimiter, // nil disables login throttling
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.ClientAddr(cfg.TrustedProxies)) // before RealIP rewrites RemoteAddr
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger) // Chi's logger
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	r.Use(chiMiddleware.StripSlashes)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler)

	// Every route sees the caller, or nobody; policies run per route.
	r.Use(middleware.Authenticate(creds))

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authHandler := handler.NewAuthHandler(authService, userService, loginLimiter)
	r.Route("/user", authHandler.RegisterRoutes)

	pager := query.Pager{DefaultLimit: cfg.DefaultPageSize, MaxLimit: cfg.MaxPageSize}
	blogHandler := handler.NewBlogHandler(blogService, pager)
	taxonomyHandler := handler.NewTaxonomyHandler(taxonomyService)
	r.Route("/blog", func(blog chi.Router) {
		blogHandler.RegisterRoutes(blog)
		taxonomyHandler.RegisterRoutes(blog)
	})

	return r
}
