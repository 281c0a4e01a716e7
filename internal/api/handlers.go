/**
 * @description
 * HTTP handlers for the admin-service. Every JSON response uses the
 * { "data": ..., "error": ... } envelope.
 */
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/helparo/admin-service/internal/app"
	"github.com/helparo/admin-service/internal/domain"
)

// DetailsService serves the aggregated user views.
type DetailsService interface {
	GetCustomerFullDetails(ctx context.Context, userID string, opts app.ViewOptions) (*domain.CustomerFullDetails, error)
	GetHelperFullDetails(ctx context.Context, userID string, opts app.ViewOptions) (*domain.HelperFullDetails, error)
	InvalidateUser(ctx context.Context, userID string) error
}

// DirectoryService serves the customer and helper list views.
type DirectoryService interface {
	ListCustomers(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error)
	ListHelpers(ctx context.Context, filter domain.ProfileListFilter) (*domain.ProfileListPage, error)
}

// PhoneService runs the pre-OTP phone checks.
type PhoneService interface {
	Check(ctx context.Context, callerID, raw string) (*app.PhoneCheckResult, error)
}

// Handler holds the application services that handlers will interact with.
type Handler struct {
	details   DetailsService
	directory DirectoryService
	phone     PhoneService
	logger    *zap.Logger
}

// NewHandler creates a new Handler.
func NewHandler(details DetailsService, directory DirectoryService, phone PhoneService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{details: details, directory: directory, phone: phone, logger: logger.Named("api")}
}

type envelope struct {
	Data  interface{} `json:"data"`
	Count *int        `json:"count,omitempty"`
	Error *string     `json:"error"`
	Code  string      `json:"code,omitempty"`
}

func (h *Handler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, h.directory.ListCustomers)
}

func (h *Handler) handleListHelpers(w http.ResponseWriter, r *http.Request) {
	h.listProfiles(w, r, h.directory.ListHelpers)
}

func (h *Handler) listProfiles(w http.ResponseWriter, r *http.Request, list func(context.Context, domain.ProfileListFilter) (*domain.ProfileListPage, error)) {
	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	page, err := list(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list profiles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to list users")
		return
	}

	count := page.Count
	respondWithJSON(w, http.StatusOK, envelope{Data: page.Data, Count: &count})
}

func parseListFilter(r *http.Request) (domain.ProfileListFilter, error) {
	q := r.URL.Query()
	filter := domain.ProfileListFilter{
		Search:             q.Get("search"),
		Status:             q.Get("status"),
		VerificationStatus: q.Get("verification_status"),
		SortBy:             q.Get("sort_by"),
	}

	switch strings.ToLower(q.Get("sort_order")) {
	case "", "desc":
	case "asc":
		filter.SortAscending = true
	default:
		return filter, errors.New("sort_order must be asc or desc")
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		return filter, fmt.Errorf("invalid limit: %w", err)
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		return filter, fmt.Errorf("invalid offset: %w", err)
	}
	if filter.Offset < 0 {
		return filter, errors.New("offset must not be negative")
	}
	return filter, nil
}

func intParam(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(raw))
}

func viewOptions(r *http.Request) app.ViewOptions {
	adminID, _ := UserFromContext(r.Context())
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return app.ViewOptions{AdminID: adminID, ForceRefresh: refresh}
}

func (h *Handler) handleGetCustomerDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.details.GetCustomerFullDetails(r.Context(), chi.URLParam(r, "id"), viewOptions(r))
	if err != nil {
		h.writeDetailsError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{Data: details})
}

func (h *Handler) handleGetHelperDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.details.GetHelperFullDetails(r.Context(), chi.URLParam(r, "id"), viewOptions(r))
	if err != nil {
		h.writeDetailsError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{Data: details})
}

func (h *Handler) handleExportCustomer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	details, err := h.details.GetCustomerFullDetails(r.Context(), id, viewOptions(r))
	if err != nil {
		h.writeDetailsError(w, err)
		return
	}
	data, err := CustomerWorkbook(details)
	if err != nil {
		h.logger.Error("failed to build customer export", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to build export")
		return
	}
	writeWorkbook(w, "customer-"+id+".xlsx", data)
}

func (h *Handler) handleExportHelper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	details, err := h.details.GetHelperFullDetails(r.Context(), id, viewOptions(r))
	if err != nil {
		h.writeDetailsError(w, err)
		return
	}
	data, err := HelperWorkbook(details)
	if err != nil {
		h.logger.Error("failed to build helper export", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to build export")
		return
	}
	writeWorkbook(w, "helper-"+id+".xlsx", data)
}

func (h *Handler) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", "User ID is required")
		return
	}
	if err := h.details.InvalidateUser(r.Context(), id); err != nil {
		h.logger.Error("failed to invalidate cached details", zap.String("user_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to invalidate cache")
		return
	}
	respondWithJSON(w, http.StatusOK, envelope{Data: map[string]string{"user_id": id}})
}

type phoneCheckRequest struct {
	Phone string `json:"phone"`
}

func (h *Handler) handlePhoneCheck(w http.ResponseWriter, r *http.Request) {
	callerID, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return
	}

	var req phoneCheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}

	result, err := h.phone.Check(r.Context(), callerID, req.Phone)
	if err != nil {
		var validation *app.PhoneValidationError
		var limited *app.RateLimitedError
		var blocked *app.BlockedError
		switch {
		case errors.As(err, &validation):
			writeError(w, http.StatusBadRequest, "INVALID_PHONE", validation.Message)
		case errors.Is(err, app.ErrPhoneExists):
			writeError(w, http.StatusConflict, "PHONE_EXISTS", err.Error())
		case errors.As(err, &blocked):
			msg := blocked.Error()
			w.Header().Set("Retry-After", strconv.Itoa(blocked.RetryAfterSeconds))
			respondWithJSON(w, http.StatusTooManyRequests, envelope{
				Data:  map[string]time.Time{"blocked_until": blocked.Until},
				Error: &msg,
				Code:  "BLOCKED",
			})
		case errors.As(err, &limited):
			w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", limited.Error())
		default:
			h.logger.Error("phone check failed", zap.String("user_id", callerID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to check phone number")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, envelope{Data: result})
}

func (h *Handler) writeDetailsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, "INVALID_USER_ID", err.Error())
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		h.logger.Error("failed to aggregate user details", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func writeWorkbook(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	respondWithJSON(w, code, envelope{Error: &message, Code: errCode})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
