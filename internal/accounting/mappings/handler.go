package mappings

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Put("/", h.Upsert)
	r.Get("/{module}/{key}", h.Get)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list account mappings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.repo.Get(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, acctshared.ErrMappingNotFound) {
			err = fmt.Errorf("%w: %s", httpx.ErrNotFound, err)
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input AccountMapping
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if input.Module == "" || input.Key == "" || input.AccountID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "module, key and account_id are required")
		return
	}
	if err := h.repo.Upsert(r.Context(), input); err != nil {
		h.logger.Error("upsert account mapping", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, input)
}
