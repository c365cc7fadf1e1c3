package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blog_backend/internal/api"
	"blog_backend/internal/api/middleware"
	"blog_backend/internal/app/service"
	"blog_backend/internal/domain/repository"
	"blog_backend/internal/platform/cache"
	"blog_backend/internal/platform/config"
	"blog_backend/internal/platform/database"
)

func main() {
	createAdmin := flag.String("create-admin", "", "create a staff account from `username:email:password` and exit")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ERROR: Loading configuration: %v", err)
	}
	log.Println("INFO: Configuration loaded.")

	// 2. Initialize Database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("ERROR: Connecting to database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.Fatalf("ERROR: Migrating database: %v", err)
	}

	// 3. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)

	// 4. Initialize Services
	creds := service.NewCredentialStore(userRepo, tokenRepo, cfg.GenericLoginErrors)
	authService := service.NewAuthService(userRepo, creds, cfg.BcryptCost)
	userService := service.NewUserService(userRepo)
	blogService := service.NewBlogService(postRepo, tagRepo, categoryRepo, userRepo, db)
	taxonomyService := service.NewTaxonomyService(categoryRepo, tagRepo)

	if *createAdmin != "" {
		if err := runCreateAdmin(authService, *createAdmin); err != nil {
			log.Fatalf("ERROR: Creating admin: %v", err)
		}
		return
	}

	// 5. Initialize Redis (optional)
	rdb, err := cache.ConnectRedis(context.Background(), cfg)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	defer cache.CloseRedis(rdb)

	var loginLimiter middleware.RateLimiter
	if rdb != nil {
		loginLimiter = cache.NewLimiter(rdb, "ratelimit:login:", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}

	// 6. Initialize Router & HTTP Server
	router := api.NewRouter(cfg, creds, authService, userService, blogService, taxonomyService, loginLimiter)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 7. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("INFO: Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Println("INFO: Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown failed: %v", err)
		return
	}
	log.Println("INFO: Server stopped gracefully.")
}

func runCreateAdmin(authService *service.AuthService, arg string) error {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("expected username:email:password, got %d fields", len(parts))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := authService.CreateAdmin(ctx, service.RegisterRequest{
		Username: parts[0],
		Email:    parts[1],
		Password: parts[2],
	})
	return err
}
