package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/dealcurator/dealcurator-backend/internal/config"
	"github.com/dealcurator/dealcurator-backend/internal/modules/auth"
	"github.com/dealcurator/dealcurator-backend/internal/modules/catalog"
	"github.com/dealcurator/dealcurator-backend/internal/modules/offer"
	"github.com/dealcurator/dealcurator-backend/internal/modules/user"
	"github.com/dealcurator/dealcurator-backend/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on the environment")
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	userService := user.NewService(userRepo)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := userService.EnsureOperator(context.Background(),
			cfg.AdminEmail, cfg.AdminPassword, "admin"); err != nil {
			log.Fatal(err)
		}
	}

	authService := auth.NewService(userRepo, []byte(cfg.JWTSecret))
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Offer commands & queries (JWT-guarded) ──────────────
	offerRepo := offer.NewPostgresRepository(db)
	productRepo := catalog.NewProductPostgresRepository(db)
	storeRepo := catalog.NewStorePostgresRepository(db)
	tagRepo := catalog.NewTagPostgresRepository(db)

	offerService := offer.NewService(offerRepo, productRepo, storeRepo, tagRepo)
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware([]byte(cfg.JWTSecret)))
		offer.NewHandler(offerService).RegisterRoutes(r)
		user.NewHandler(userService).RegisterRoutes(r)
	})

	// ── Operational endpoints ───────────────────────────────
	router.Handle("/metrics", telemetry.MetricsHandler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// ── Start Server ────────────────────────────────────────
	fmt.Printf("Deal curator API server starting on %s\n", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, router))
}
