// Package api assembles the HTTP surface: routes and the middleware chain.
package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/handlers"
	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Turns        handlers.TurnRunner
	Summaries    handlers.SummaryProvider
	Transactions store.TransactionRepository
	Jobs         jobs.JobStore
	Auth         *middleware.Authenticator
	ChatLimiter  *middleware.RateLimiter
	Log          zerolog.Logger
}

// NewRouter returns the full handler with middleware applied.
func NewRouter(d Deps) http.Handler {
	chatHandler := handlers.NewChatHandler(d.Turns, d.Log)
	dashboardHandler := handlers.NewDashboardHandler(d.Summaries, d.Log)
	transactionsHandler := handlers.NewTransactionsHandler(d.Transactions, d.Log)
	categoriesHandler := handlers.NewCategoriesHandler()
	jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)

	mux := http.NewServeMux()

	var chat http.Handler = http.HandlerFunc(chatHandler.Chat)
	if d.ChatLimiter != nil {
		chat = d.ChatLimiter.Middleware(chat)
	}
	mux.Handle("/api/chat", methods(chat, http.MethodPost))

	mux.Handle("/api/dashboard", methods(http.HandlerFunc(dashboardHandler.Dashboard), http.MethodGet))
	mux.Handle("/api/transactions", methods(http.HandlerFunc(transactionsHandler.ListTransactions), http.MethodGet))
	mux.Handle("/api/categories", methods(http.HandlerFunc(categoriesHandler.ListCategories), http.MethodGet))
	mux.Handle("/api/jobs", methods(http.HandlerFunc(jobsHandler.ListJobs), http.MethodGet))

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract job ID from path
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", handlers.Health)

	return middleware.Recovery(d.Log)(
		middleware.Logger(d.Log)(
			middleware.RequestID(
				middleware.CORS(
					d.Auth.Middleware(mux),
				),
			),
		),
	)
}

func methods(h http.Handler, allowed ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range allowed {
			if r.Method == m {
				h.ServeHTTP(w, r)
				return
			}
		}
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}
