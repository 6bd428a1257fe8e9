package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"toda-backend/internal/auth"
	"toda-backend/internal/cache"
	"toda-backend/internal/config"
	"toda-backend/internal/database"
	"toda-backend/internal/db"
	"toda-backend/internal/handlers"
	"toda-backend/internal/health"
	h "toda-backend/internal/http"
	"toda-backend/internal/identity"
	"toda-backend/internal/middleware"
	"toda-backend/internal/reconciler"
	"toda-backend/internal/repositories"
	"toda-backend/internal/services"
	"toda-backend/internal/storage"
	"toda-backend/internal/ws"
)

// counterRefreshInterval bounds how long a drifted dashboard counter can
// survive before the background repair pass catches it.
const counterRefreshInterval = 5 * time.Minute

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	flag.Parse()

	// Load configuration
	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}

	// Connect to PostgreSQL
	pool := db.Connect(cfg)
	defer pool.Close()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	if err := cache.Init(); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (responses served uncached)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigrator(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize health checker
	healthChecker := health.NewHealthChecker(pool)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(pool)
	barangayRepo := repositories.NewBarangayRepository(pool)
	driverRepo := repositories.NewDriverRepository(pool)
	passengerRepo := repositories.NewPassengerRepository(pool)
	ledgerRepo := repositories.NewLedgerRepository(pool)
	counterRepo := repositories.NewCounterRepository(pool)
	orderRepo := repositories.NewRechargeOrderRepository(pool)

	// Reconciler owns every write to balances, queue state and the ledger
	rec := reconciler.New(reconciler.NewPostgresStore(pool), reconciler.Policy{
		AllowNegativeBalance: cfg.Billing.AllowNegativeBalance,
	})

	// WebSocket hub broadcasts committed queue changes to dashboards
	hub := ws.NewHub()
	go hub.Run()
	rec.SetNotifier(hub)

	// External systems: identity provider and image bucket
	provider := identity.NewRESTProvider(cfg)
	objectStore, err := storage.NewR2Store(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Initialize services
	userService := services.NewUserService(userRepo, jwtManager)
	registrationService := services.NewRegistrationService(driverRepo, barangayRepo, provider, objectStore, rec)
	counterService := services.NewCounterService(counterRepo, driverRepo, passengerRepo, ledgerRepo)
	scannerService := services.NewScannerService(rec, barangayRepo,
		cfg.Scanner.BuzzerURL, time.Duration(cfg.Scanner.TimeoutSeconds)*time.Second)
	reportService := services.NewReportService(driverRepo, ledgerRepo)
	razorpayService := services.NewRazorpayService(
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.WebhookSecret,
		orderRepo, rec)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, userRepo)
	corsMiddleware := middleware.NewCORS(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	userHandler := handlers.NewUserHandler(userService)
	driverHandler := handlers.NewDriverHandler(driverRepo, ledgerRepo, registrationService, rec)
	passengerHandler := handlers.NewPassengerHandler(passengerRepo, provider)
	barangayHandler := handlers.NewBarangayHandler(barangayRepo)
	scannerHandler := handlers.NewScannerHandler(scannerService)
	dashboardHandler := handlers.NewDashboardHandler(counterService, driverRepo, ledgerRepo)
	reportHandler := handlers.NewReportHandler(reportService)
	razorpayHandler := handlers.NewRazorpayHandler(razorpayService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Background repair loop for dashboard counter projections
	go func() {
		ticker := time.NewTicker(counterRefreshInterval)
		defer ticker.Stop()
		for range ticker.C {
			refreshCtx, refreshCancel := context.WithTimeout(context.Background(), 30*time.Second)
			counterService.RefreshAll(refreshCtx)
			refreshCancel()
		}
	}()

	router := h.NewRouter(
		authHandler,
		userHandler,
		driverHandler,
		passengerHandler,
		barangayHandler,
		scannerHandler,
		dashboardHandler,
		reportHandler,
		razorpayHandler,
		healthHandler,
		hub,
		authMiddleware,
		cache.GetClient(),
	)

	// Wrap with panic recovery, metrics, access logging and CORS
	handler := middleware.PanicRecovery(
		middleware.MetricsMiddleware(
			middleware.APILogging(
				corsMiddleware(router))))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server running on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
