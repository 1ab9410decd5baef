package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"referral-platform/internal/auth"
	"referral-platform/internal/config"
	"referral-platform/internal/database"
	"referral-platform/internal/email"
	"referral-platform/internal/handlers"
	"referral-platform/internal/jobs"
	"referral-platform/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Notification service (fire-and-forget email)
	notifier := email.NewService(cfg.Email.FromEmail, cfg.Email.FromName, cfg.Email.SendGridAPIKey)

	// Initialize services
	authService := services.NewAuthService(db)
	userService := services.NewUserService(db)
	cascadeService := services.NewCascadeService(db)
	premiumService := services.NewPremiumService(db)
	withdrawalService := services.NewWithdrawalService(db, notifier)
	bonusService := services.NewBonusService(db)

	// Identity verification chain: remote introspection first, then local
	// JWT validation, then the opt-in unverified fallback.
	verifierChain := auth.NewChain(
		auth.NewRemoteVerifier(cfg.Auth.IntrospectionURL),
		auth.NewLocalVerifier(cfg.App.JWTSecret),
		auth.NewUnverifiedVerifier(cfg.Auth.AllowUnverified),
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userService)
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(cascadeService, userService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	bonusHandler := handlers.NewBonusHandler(bonusService)
	adminHandler := handlers.NewAdminHandler(withdrawalService, premiumService)

	// Start daily stats snapshot job
	statsJob := jobs.NewStatsJob(db)
	statsJob.Start(24 * time.Hour)
	log.Println("Platform stats job started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Admin-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.Middleware(verifierChain))
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.Middleware(verifierChain))
	{
		api.GET("/profile", userHandler.GetProfile)
		api.GET("/referrals", userHandler.GetReferrals)

		api.POST("/products", productHandler.SubmitProduct)
		api.GET("/products", productHandler.GetSubmissions)

		api.POST("/withdrawals", withdrawalHandler.RequestWithdrawal)
		api.GET("/withdrawals", withdrawalHandler.GetWithdrawals)

		api.GET("/bonuses", bonusHandler.ListBonuses)
		api.POST("/bonuses/:id/claim", bonusHandler.ClaimBonus)
	}

	// Admin routes (protected + admin key)
	admin := router.Group("/api/admin")
	admin.Use(auth.Middleware(verifierChain))
	admin.Use(auth.AdminMiddleware(cfg.App.AdminAPIKey))
	{
		admin.GET("/withdrawals", adminHandler.ListWithdrawals)
		admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
		admin.POST("/withdrawals/:id/deny", adminHandler.DenyWithdrawal)

		admin.POST("/premium", adminHandler.AssignPremium)
		admin.DELETE("/premium/:userId", adminHandler.RevokePremium)
		admin.POST("/users/:id/unfreeze", adminHandler.UnfreezeAccount)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
