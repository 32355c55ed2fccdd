package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"candor-backend/internal/assistant"
	"candor-backend/internal/coach"
	"candor-backend/internal/database"
	"candor-backend/internal/dispatch"
	"candor-backend/internal/handlers"
	"candor-backend/internal/mailer"
	customMiddleware "candor-backend/internal/middleware"
	"candor-backend/internal/notify"
	"candor-backend/internal/repository"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env (ignore error in production — env vars set directly)
	_ = godotenv.Load()

	// Required env vars
	mongoURI := getEnv("MONGODB_URI", "")
	dbName := getEnv("DB_NAME", "candor")
	jwtSecret := getEnv("JWT_SECRET", "")
	openaiKey := getEnv("OPENAI_API_KEY", "")
	assistantID := getEnv("OPENAI_ASSISTANT_ID", "")
	port := getEnv("PORT", "8080")
	baseURL := getEnv("BASE_URL", "http://localhost:"+port)

	if mongoURI == "" {
		log.Fatal("❌ MONGODB_URI is required")
	}
	if jwtSecret == "" {
		log.Fatal("❌ JWT_SECRET is required")
	}
	if openaiKey == "" {
		log.Fatal("❌ OPENAI_API_KEY is required")
	}
	if assistantID == "" {
		log.Fatal("❌ OPENAI_ASSISTANT_ID is required")
	}

	// Connect to MongoDB
	if err := database.Connect(mongoURI, dbName); err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepo()
	tokenRepo := repository.NewAuthTokenRepo()
	requestRepo := repository.NewRequestRepo()
	templateRepo := repository.NewTemplateRepo()

	// Ensure indexes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create user indexes: %v", err)
	}
	if err := tokenRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create token indexes: %v", err)
	}
	if err := requestRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create request indexes: %v", err)
	}
	if err := templateRepo.EnsureIndexes(ctx); err != nil {
		log.Printf("⚠️  Warning: failed to create template indexes: %v", err)
	}

	// Assistant transport + feedback coach
	assistantClient, err := assistant.NewClient(assistant.Config{
		APIKey:      openaiKey,
		AssistantID: assistantID,
	})
	if err != nil {
		log.Fatalf("❌ Failed to configure assistant client: %v", err)
	}
	feedbackCoach := coach.New(assistantClient)

	// Outbound email: real Resend client when configured, logging mock otherwise
	var outbound mailer.Mailer
	resendKey := getEnv("RESEND_API_KEY", "")
	fromEmail := getEnv("FROM_EMAIL", "feedback@candor.app")
	if resendKey != "" {
		outbound = mailer.NewResendMailer(resendKey, fromEmail)
	} else {
		log.Println("⚠️  RESEND_API_KEY not set, using mock mailer")
		outbound = mailer.NewMockMailer()
	}

	// Operator notifier (mock)
	notifier := notify.NewLogNotifier()

	// Fan-out service
	dispatcher := dispatch.NewService(requestRepo, outbound, baseURL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(tokenRepo, userRepo, jwtSecret)
	conversationHandler := handlers.NewConversationHandler(requestRepo, feedbackCoach, notifier)
	feedbackHandler := handlers.NewFeedbackHandler(requestRepo, userRepo, dispatcher, outbound, baseURL)
	templateHandler := handlers.NewTemplateHandler(templateRepo)
	userHandler := handlers.NewUserHandler(userRepo)

	// Setup chi router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"candor-backend"}`))
	})

	// Public routes (no auth required)
	r.Post("/auth/request", authHandler.RequestLogin)
	r.Get("/auth/verify", authHandler.VerifyToken)
	r.Get("/auth/redirect", authHandler.RedirectToApp)

	// Recipient routes — the unguessable link is the credential
	r.Get("/f/{link}", feedbackHandler.PublicView)
	r.Post("/f/{link}", feedbackHandler.PublicSubmit)

	// Protected routes (JWT required)
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.JWTAuth(jwtSecret))

		r.Post("/conversations", conversationHandler.Start)
		r.Post("/conversations/{id}/messages", conversationHandler.SendMessage)
		r.Post("/conversations/{id}/finish", conversationHandler.Finish)

		r.Get("/requests", feedbackHandler.List)
		r.Get("/requests/{id}", feedbackHandler.Get)
		r.Post("/requests/{id}/dispatch", feedbackHandler.Dispatch)
		r.Post("/requests/{id}/send", feedbackHandler.SendDirect)

		r.Post("/templates", templateHandler.Create)
		r.Get("/templates", templateHandler.List)
		r.Get("/templates/{id}", templateHandler.Get)

		r.Get("/profile", userHandler.GetProfile)
		r.Patch("/profile", userHandler.UpdateProfile)
	})

	// Start server
	log.Printf("🚀 Candor backend starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
