package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/robolab-backend/internal/config"
	"github.com/AnshRaj112/robolab-backend/internal/database"
	"github.com/AnshRaj112/robolab-backend/internal/handlers"
	"github.com/AnshRaj112/robolab-backend/internal/middleware"
	"github.com/AnshRaj112/robolab-backend/internal/routes"
	"github.com/AnshRaj112/robolab-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	ctx := context.Background()

	// Connect to Redis. This is the local store's substrate; without it the
	// service has nothing to fall back to, so failure here is fatal.
	log.Printf("Connecting to Redis...")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Connect to MongoDB. Failure is tolerated: the sync facade runs in
	// local-only mode for the rest of the process.
	log.Printf("Connecting to MongoDB...")
	var remote *services.RemoteStore
	mongoConn, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Printf("⚠️  MongoDB unavailable, starting in local-only mode: %v", err)
	} else {
		remote = services.NewRemoteStore(mongoConn.DB)
		defer mongoConn.Disconnect()
	}

	// Build the data layer
	local := services.NewLocalStore(rdb, cfg.AdminEmail, cfg.AdminPassword)
	var backend services.RemoteBackend
	if remote != nil {
		backend = remote
	}
	syncSvc := services.NewSyncService(backend, local, cfg.AdminEmail, cfg.AdminPassword)
	syncSvc.Initialize(ctx)
	authSvc := services.NewAuthService(syncSvc, local)

	// Realtime event fan-out (Redis Pub/Sub + WebSocket)
	hub := services.NewEventHub(rdb)
	hub.Start(ctx)
	if syncSvc.RemoteEnabled() {
		hub.WatchInventory(ctx, remote)
	}

	// Component image uploads (optional)
	var images *services.CloudinaryService
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		images, err = services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("Warning: Failed to initialize Cloudinary: %v", err)
			log.Println("Component image uploads will not be available")
			images = nil
		} else {
			log.Println("✅ Cloudinary service initialized")
		}
	} else {
		log.Println("Warning: Cloudinary credentials not found. Component image uploads will not be available")
	}

	h := handlers.New(authSvc, syncSvc, hub, images)

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.SessionTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Production: SecurityHeaders → GlobalRateLimit → LoginRateLimit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity() {
			r.Use(mw)
		}
		log.Println("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.RateLimit(rdb))
	}

	// Health check (no auth)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, h)

	log.Printf("🚀 RoboLab backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
