package api

import (
	"github.com/gorilla/mux"

	"github.com/garnizeh/marketplace/internal/app"
	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/pkg/models"
)

func SetupRoutes(cfg *config.Config, version, buildTime string, a *app.App) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := NewSystemHandler(a.DB.GetConn())
	jobsHandler := NewJobsHandler(a.Lifecycle)
	quotesHandler := NewQuotesHandler(a.Lifecycle, a.Matching)
	profileHandler := NewProfileHandler(a.Store, a.Repair, a.Ledger, a.Catalog)
	notificationsHandler := NewNotificationsHandler(a.Notify, a.Broker)
	adminHandler := NewAdminHandler(a.Ledger, a.Catalog)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Profile and credits
	apiV1.HandleFunc("/me", profileHandler.GetMe).Methods("GET")
	apiV1.HandleFunc("/me", profileHandler.UpdateMe).Methods("PUT")
	apiV1.HandleFunc("/credits", profileHandler.Credits).Methods("GET")
	apiV1.HandleFunc("/categories", adminHandler.ListCategories).Methods("GET")

	// Jobs
	apiV1.HandleFunc("/jobs", jobsHandler.CreateJob).Methods("POST")
	apiV1.HandleFunc("/jobs", jobsHandler.ListMyJobs).Methods("GET")
	apiV1.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods("GET")
	apiV1.HandleFunc("/jobs/{id}", jobsHandler.EditJob).Methods("PATCH")
	apiV1.HandleFunc("/jobs/{id}", jobsHandler.DeleteJob).Methods("DELETE")
	apiV1.HandleFunc("/jobs/{id}/close", jobsHandler.Transition(a.Lifecycle.CloseJob)).Methods("POST")
	apiV1.HandleFunc("/jobs/{id}/archive", jobsHandler.Transition(a.Lifecycle.ArchiveJob)).Methods("POST")
	apiV1.HandleFunc("/jobs/{id}/complete", jobsHandler.Transition(a.Lifecycle.CompleteJob)).Methods("POST")
	apiV1.HandleFunc("/jobs/{id}/contact", jobsHandler.Contact).Methods("GET")

	// Quotes and matches
	apiV1.HandleFunc("/jobs/{id}/quotes", quotesHandler.ListJobQuotes).Methods("GET")
	apiV1.HandleFunc("/jobs/{id}/quotes", quotesHandler.SubmitQuote).Methods("POST")
	apiV1.HandleFunc("/quotes", quotesHandler.ListMyQuotes).Methods("GET")
	apiV1.HandleFunc("/quotes/{id}/accept", quotesHandler.AcceptQuote).Methods("POST")
	apiV1.HandleFunc("/quotes/{id}/reject", quotesHandler.RejectQuote).Methods("POST")
	apiV1.HandleFunc("/matches", quotesHandler.ListMatches).Methods("GET")

	// Notifications
	apiV1.HandleFunc("/notifications", notificationsHandler.List).Methods("GET")
	apiV1.HandleFunc("/notifications/stream", notificationsHandler.Stream).Methods("GET")
	apiV1.HandleFunc("/notifications/read-all", notificationsHandler.MarkAllRead).Methods("POST")
	apiV1.HandleFunc("/notifications/{id}/read", notificationsHandler.MarkRead).Methods("POST")

	// Admin
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(RequireRole(models.RoleAdmin))
	admin.HandleFunc("/professionals/{id}/credits", adminHandler.GrantCredits).Methods("POST")
	admin.HandleFunc("/professionals/{id}/refill", adminHandler.Refill).Methods("POST")
	admin.HandleFunc("/professionals/{id}/plan", adminHandler.SetPlan).Methods("PUT")
	admin.HandleFunc("/categories/{category}/schema", adminHandler.PutSchema).Methods("PUT")

	return r
}
