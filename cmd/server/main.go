package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"saumya185/course-platform/internal/api"
	"saumya185/course-platform/internal/config"
	"saumya185/course-platform/internal/gateway"
	"saumya185/course-platform/internal/notify"
	"saumya185/course-platform/internal/repository/mongo"
	"saumya185/course-platform/internal/service"
)

func main() {
	log.Println("Starting Course Platform Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	log.Println("Configuration loaded.")

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		log.Fatalf("FATAL: Could not connect to MongoDB: %v", err)
	}
	defer func() {
		log.Println("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	// The unique (user, course) index on enrollments is what makes double
	// enrollment impossible, so index creation must not be skipped.
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		mongo.EnsureUserIndexes(ctx, appDB.Collection("users"))
		mongo.EnsureCourseIndexes(ctx, appDB.Collection("courses"))
		mongo.EnsureEnrollmentIndexes(ctx, appDB.Collection("enrollments"))
		mongo.EnsurePaymentIndexes(ctx, appDB.Collection("payments"))
		mongo.EnsureProgressIndexes(ctx, appDB.Collection("progress"))
		mongo.EnsureReviewIndexes(ctx, appDB.Collection("reviews"))
		log.Println("Index creation process completed.")
	}()

	// --- Payment Gateway ---
	var gw gateway.PaymentGateway
	switch cfg.Payment.Provider {
	case "midtrans":
		var err error
		gw, err = gateway.NewMidtransGateway(cfg.Payment.ServerKey, cfg.Payment.Production)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize Midtrans gateway: %v", err)
		}
		log.Println("Midtrans payment gateway initialized.")
	default:
		gw = gateway.NewMockGateway()
		log.Println("Mock payment gateway initialized.")
	}

	notifier := notify.NewLogNotifier()

	// --- Initialize Repositories ---
	log.Println("Initializing repositories...")
	userRepo := mongo.NewMongoUserRepository(appDB)
	courseRepo := mongo.NewMongoCourseRepository(appDB)
	enrollmentRepo := mongo.NewMongoEnrollmentRepository(appDB)
	paymentRepo := mongo.NewMongoPaymentRepository(appDB)
	progressRepo := mongo.NewMongoProgressRepository(appDB)
	reviewRepo := mongo.NewMongoReviewRepository(appDB)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	userService := service.NewUserService(userRepo, courseRepo)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, userRepo, courseRepo, paymentRepo, progressRepo, notifier)
	paymentService := service.NewPaymentService(paymentRepo, courseRepo, enrollmentRepo, enrollmentService, gw, cfg.Payment.Currency)
	progressService := service.NewProgressService(progressRepo, notifier)
	reviewService := service.NewReviewService(reviewRepo, courseRepo, enrollmentRepo)
	courseService := service.NewCourseService(courseRepo, reviewRepo, paymentService)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	// --- Setup Routes ---
	log.Println("Setting up API routes...")
	api.SetupRoutes(
		router,
		cfg.JWT.Secret,
		authService,
		userService,
		courseService,
		enrollmentService,
		progressService,
		paymentService,
		reviewService,
	)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("FATAL: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
