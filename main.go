package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bvesterAPI/handlers"
	"bvesterAPI/middleware"
	"bvesterAPI/services"

	_ "net/http/pprof"
)

var (
	dbPool         *pgxpool.Pool
	engine         *services.GamificationService
	historyService *services.HistoryService
	dispatcher     *services.EventDispatcher
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		log.Fatal("Failed to parse database URL:", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	dbPool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Failed to create connection pool:", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	log.Println("Successfully connected to database")

	historyService = services.NewHistoryService(dbPool)
	engine = services.NewGamificationService(services.DefaultGamificationConfig(time.Now()))

	snapshots, err := historyService.LoadAllProgress(ctx)
	if err != nil {
		log.Fatal("Failed to load user progress snapshots:", err)
	}
	engine.Restore(snapshots)

	dispatcher = services.NewEventDispatcher(historyService, engine)
	engine.SetEventSink(dispatcher)

	middleware.InitPrometheus()
}

func main() {
	defer func() {
		log.Println("Closing database connection pool...")
		dbPool.Close()
	}()

	ctx := context.Background()

	authClient, err := middleware.NewFirebaseAuthClient(ctx, "./serviceAccountKey.json")
	if err != nil {
		log.Fatal("Failed to initialize Firebase Auth:", err)
	}
	log.Println("Firebase Auth initialized successfully")

	gamificationHandler := handlers.NewGamificationHandler(engine, historyService)

	r := mux.NewRouter()

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := dbPool.Ping(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "bvester-gamification-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("/gamification").Subrouter()
	protected.Use(middleware.FirebaseAuthMiddleware(authClient))

	protected.HandleFunc("/actions", gamificationHandler.AwardAction).Methods("POST")
	protected.HandleFunc("/check-in", gamificationHandler.CheckIn).Methods("POST")
	protected.HandleFunc("/achievements/check", gamificationHandler.CheckAchievements).Methods("POST")
	protected.HandleFunc("/achievements", gamificationHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/challenges", gamificationHandler.GetChallenges).Methods("GET")
	protected.HandleFunc("/challenges/{challengeID}/join", gamificationHandler.JoinChallenge).Methods("POST")
	protected.HandleFunc("/challenges/progress", gamificationHandler.UpdateChallengeProgress).Methods("POST")
	protected.HandleFunc("/stats", gamificationHandler.GetStats).Methods("GET")
	protected.HandleFunc("/leaderboard", gamificationHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/history", gamificationHandler.GetHistory).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	dispatcher.Stop()

	log.Println("Server shutdown complete")
}
