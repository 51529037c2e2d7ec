package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/repository"
	"github.com/folkops/opsboard/internal/service"
)

// ReportHandler handles the daily report endpoints.
type ReportHandler struct {
	reportService *service.ReportService
	authService   *service.AuthService
	logger        *zap.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(reportService *service.ReportService, authService *service.AuthService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		authService:   authService,
		logger:        logger,
	}
}

// RegisterRoutes registers the report routes. All of them require auth.
func (h *ReportHandler) RegisterRoutes(router *mux.Router) {
	reports := router.PathPrefix("/v1/reports").Subrouter()
	reports.Use(AuthMiddleware(h.authService))
	reports.HandleFunc("", h.ListReports).Methods(http.MethodGet)
	reports.HandleFunc("", h.SaveReport).Methods(http.MethodPost)
	reports.HandleFunc("/summary", h.Summary).Methods(http.MethodGet)
	reports.HandleFunc("/{id}", h.DeleteReport).Methods(http.MethodDelete)
}

func reportFilterFromRequest(r *http.Request, user *models.User) repository.ReportFilter {
	q := r.URL.Query()
	f := repository.ReportFilter{
		Team:     q.Get("team"),
		Staff:    q["staff"],
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
	}
	// Non-managers only see their own team's reports.
	if user.Role != models.RoleManager && user.Team != "" {
		f.Team = user.Team
	}
	return f
}

// ListReports returns report rows matching the query filters.
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	rows, err := h.reportService.List(r.Context(), reportFilterFromRequest(r, user))
	if err != nil {
		h.logger.Error("list reports failed", zap.Error(err))
		internalError("failed to load reports").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"reports": rows})
}

// SaveReport creates or updates a report row.
func (h *ReportHandler) SaveReport(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	var report models.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		badRequest("Invalid request body").WriteHTTP(w)
		return
	}
	if report.ReportDate == "" || report.Staff == "" {
		validationError("Report date and staff are required").WriteHTTP(w)
		return
	}

	if err := h.reportService.Save(r.Context(), &report); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			notFound("report").WriteHTTP(w)
			return
		}
		h.logger.Error("save report failed", zap.Error(err))
		internalError("failed to save report").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// DeleteReport removes a report row.
func (h *ReportHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		badRequest("Invalid report id").WriteHTTP(w)
		return
	}

	if err := h.reportService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			notFound("report").WriteHTTP(w)
			return
		}
		h.logger.Error("delete report failed", zap.Error(err))
		internalError("failed to delete report").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Summary returns derived metrics grouped by team or staff.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	groupBy := service.GroupBy(r.URL.Query().Get("groupBy"))
	if groupBy == "" {
		groupBy = service.GroupByTeam
	}
	if groupBy != service.GroupByTeam && groupBy != service.GroupByStaff {
		validationError("groupBy must be team or staff").WriteHTTP(w)
		return
	}

	summaries, err := h.reportService.Summarize(r.Context(), reportFilterFromRequest(r, user), groupBy)
	if err != nil {
		h.logger.Error("summarize reports failed", zap.Error(err))
		internalError("failed to summarize reports").WriteHTTP(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}
