package periods

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/{id}/close", h.Close)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	periods, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list periods", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Path", "period id must be numeric")
		return
	}
	if err := h.service.Close(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, acctshared.ErrInvalidPeriod):
			err = fmt.Errorf("%w: %s", httpx.ErrConflict, err)
		case errors.Is(err, shared.ErrActorRequired):
			err = fmt.Errorf("%w: %s", httpx.ErrUnauthorized, err)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "closed"})
}
