package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"toda-backend/internal/handlers"
	"toda-backend/internal/middleware"
	"toda-backend/internal/ws"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	driverHandler *handlers.DriverHandler,
	passengerHandler *handlers.PassengerHandler,
	barangayHandler *handlers.BarangayHandler,
	scannerHandler *handlers.ScannerHandler,
	dashboardHandler *handlers.DashboardHandler,
	reportHandler *handlers.ReportHandler,
	razorpayHandler *handlers.RazorpayHandler,
	healthHandler *handlers.HealthHandler,
	hub *ws.Hub,
	authMiddleware *middleware.AuthMiddleware,
	redisClient *redis.Client,
) *mux.Router {
	r := mux.NewRouter()

	// Public API routes - Authentication
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Scanner endpoints - no JWT, terminal devices authenticate at the
	// network layer. Idempotency keys guard against RFID double reads.
	scannerAPI := r.PathPrefix("/scanner").Subrouter()
	scannerAPI.Use(middleware.Idempotency(redisClient))
	scannerAPI.HandleFunc("/queue-event", scannerHandler.QueueEvent).Methods("POST")
	scannerAPI.HandleFunc("/buzzer", scannerHandler.TriggerBuzzer).Methods("POST")

	// Payment gateway webhook (signature-verified, no JWT)
	r.HandleFunc("/payments/webhook", razorpayHandler.HandleWebhook).Methods("POST")

	// Live queue feed for dashboard clients
	r.HandleFunc("/ws", hub.ServeWS).Methods("GET")

	// Protected API routes - Users (admin only for mutations)
	usersAPI := r.PathPrefix("/api/users").Subrouter()
	usersAPI.Use(authMiddleware.Authenticate)
	usersAPI.HandleFunc("", userHandler.ListUsers).Methods("GET")
	usersAPI.HandleFunc("", authMiddleware.RequireRole("admin")(http.HandlerFunc(userHandler.CreateUser)).ServeHTTP).Methods("POST")
	usersAPI.HandleFunc("/{id}", userHandler.GetUser).Methods("GET")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole("admin")(http.HandlerFunc(userHandler.UpdateUser)).ServeHTTP).Methods("PUT")
	usersAPI.HandleFunc("/{id}", authMiddleware.RequireRole("admin")(http.HandlerFunc(userHandler.DeleteUser)).ServeHTTP).Methods("DELETE")
	usersAPI.HandleFunc("/{id}/toggle-active", authMiddleware.RequireRole("admin")(http.HandlerFunc(userHandler.ToggleActiveStatus)).ServeHTTP).Methods("PATCH")

	// Protected API routes - Drivers
	driversAPI := r.PathPrefix("/api/drivers").Subrouter()
	driversAPI.Use(authMiddleware.Authenticate)
	driversAPI.Use(middleware.Idempotency(redisClient))
	driversAPI.HandleFunc("", driverHandler.ListDrivers).Methods("GET")
	driversAPI.HandleFunc("", driverHandler.RegisterDriver).Methods("POST")
	driversAPI.HandleFunc("/{id}", driverHandler.GetDriver).Methods("GET")
	driversAPI.HandleFunc("/{id}", driverHandler.UpdateDriver).Methods("PUT")
	driversAPI.HandleFunc("/{id}", authMiddleware.RequireRole("admin")(http.HandlerFunc(driverHandler.DeleteDriver)).ServeHTTP).Methods("DELETE")
	driversAPI.HandleFunc("/recharge", driverHandler.RechargeByEmail).Methods("POST")
	driversAPI.HandleFunc("/{id}/recharge", driverHandler.Recharge).Methods("POST")
	driversAPI.HandleFunc("/{id}/ledger", driverHandler.Ledger).Methods("GET")

	// Protected API routes - Passengers
	passengersAPI := r.PathPrefix("/api/passengers").Subrouter()
	passengersAPI.Use(authMiddleware.Authenticate)
	passengersAPI.HandleFunc("", passengerHandler.ListPassengers).Methods("GET")
	passengersAPI.HandleFunc("", passengerHandler.CreatePassenger).Methods("POST")
	passengersAPI.HandleFunc("/{id}", passengerHandler.GetPassenger).Methods("GET")
	passengersAPI.HandleFunc("/{id}", passengerHandler.DeletePassenger).Methods("DELETE")

	// Protected API routes - Barangay terminals
	barangaysAPI := r.PathPrefix("/api/barangays").Subrouter()
	barangaysAPI.Use(authMiddleware.Authenticate)
	barangaysAPI.HandleFunc("", barangayHandler.ListBarangays).Methods("GET")
	barangaysAPI.HandleFunc("/{id}", barangayHandler.GetBarangay).Methods("GET")
	barangaysAPI.HandleFunc("/{id}/fee", authMiddleware.RequireRole("admin")(http.HandlerFunc(barangayHandler.UpdateTerminalFee)).ServeHTTP).Methods("PUT")

	// Protected API routes - Dashboard
	dashboardAPI := r.PathPrefix("/api/dashboard").Subrouter()
	dashboardAPI.Use(authMiddleware.Authenticate)
	dashboardAPI.HandleFunc("/overview", dashboardHandler.Overview).Methods("GET")
	dashboardAPI.HandleFunc("/recent-activity", dashboardHandler.RecentActivity).Methods("GET")
	dashboardAPI.HandleFunc("/queue/{barangay}", dashboardHandler.Queue).Methods("GET")
	dashboardAPI.HandleFunc("/refresh-counters", dashboardHandler.RefreshCounters).Methods("POST")

	// Protected API routes - Reports
	reportsAPI := r.PathPrefix("/api/reports").Subrouter()
	reportsAPI.Use(authMiddleware.Authenticate)
	reportsAPI.HandleFunc("/drivers.csv", reportHandler.DriversCSV).Methods("GET")
	reportsAPI.HandleFunc("/ledger.csv", reportHandler.LedgerCSV).Methods("GET")
	reportsAPI.HandleFunc("/billing-summary.pdf", reportHandler.BillingSummaryPDF).Methods("GET")
	reportsAPI.HandleFunc("/drivers/{id}/statement.pdf", reportHandler.DriverStatementPDF).Methods("GET")

	// Protected API routes - Online recharges
	paymentsAPI := r.PathPrefix("/api/payments").Subrouter()
	paymentsAPI.Use(authMiddleware.Authenticate)
	paymentsAPI.Use(middleware.Idempotency(redisClient))
	paymentsAPI.HandleFunc("/status", razorpayHandler.PaymentStatus).Methods("GET")
	paymentsAPI.HandleFunc("/orders", razorpayHandler.CreateOrder).Methods("POST")
	paymentsAPI.HandleFunc("/verify", razorpayHandler.VerifyPayment).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
