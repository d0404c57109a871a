package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/dashboard"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// SummaryProvider builds the dashboard view of a user.
type SummaryProvider interface {
	Summary(ctx context.Context, userID string, r dashboard.TimeRange) (dashboard.Summary, error)
}

// DashboardHandler handles the dashboard aggregation endpoint.
type DashboardHandler struct {
	summaries SummaryProvider
	log       zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(summaries SummaryProvider, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		summaries: summaries,
		log:       log,
	}
}

// Dashboard handles GET /api/dashboard?timeRange=1m|3m|6m|1y
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	timeRange := dashboard.ParseTimeRange(r.URL.Query().Get("timeRange"))

	summary, err := h.summaries.Summary(r.Context(), userID, timeRange)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("range", string(timeRange)).Msg("Failed to build dashboard")
		status, body := storeErrorResponse(err)
		middleware.WriteErrorDetails(w, status, body)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, summary)
}

// storeErrorResponse maps the store error taxonomy onto HTTP responses.
func storeErrorResponse(err error) (int, middleware.ErrorResponse) {
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusServiceUnavailable, middleware.ErrorResponse{
			Error:   "Data store not configured",
			Message: "Please configure the data store in environment variables",
			Hint:    "Set FINANCE_STORE_DRIVER and FINANCE_STORE_URL (or DATABASE_URL)",
		}
	case errors.Is(err, store.ErrTableMissing):
		return http.StatusBadRequest, middleware.ErrorResponse{
			Error:   "Table not found",
			Message: "The 'transactions' table doesn't exist in the database",
			Hint:    "Create the transactions and savings tables before using the dashboard",
		}
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusForbidden, middleware.ErrorResponse{
			Error:   "Permission denied",
			Message: "Check the row level security policies of the transactions table",
			Hint:    "Make sure the policies allow users to read their own transactions",
		}
	default:
		return http.StatusInternalServerError, middleware.ErrorResponse{
			Error:   "Failed to fetch dashboard data",
			Details: err.Error(),
		}
	}
}
