package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.Timeline)
	r.Get("/export.csv", h.ExportCSV)
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filters", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filters", err.Error())
		return
	}
	data, err := h.service.ExportCSV(r.Context(), filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	var filters TimelineFilters
	var err error

	if raw := q.Get("from"); raw != "" {
		if filters.From, err = parseDateOrTime(raw); err != nil {
			return filters, fmt.Errorf("from: %w", err)
		}
	}
	if raw := q.Get("to"); raw != "" {
		if filters.To, err = parseDateOrTime(raw); err != nil {
			return filters, fmt.Errorf("to: %w", err)
		}
	}
	if raw := q.Get("actor_id"); raw != "" {
		if filters.ActorID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return filters, fmt.Errorf("actor_id: %w", err)
		}
	}
	filters.Entity = q.Get("entity")
	filters.Action = q.Get("action")
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	return filters, nil
}

func parseDateOrTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
