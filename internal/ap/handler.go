package ap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

// IdempotencyGuard dedupes payment submissions carrying an Idempotency-Key
// header.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	service *Service
	aging   *AgingService
	idem    IdempotencyGuard
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service, aging *AgingService, idem IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, aging: aging, idem: idem}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/aging", h.Aging)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/payments", h.ListPayments)
	r.Post("/{id}/payments", h.RecordPayment)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrExceedsOutstanding):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	default:
		return err
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	if raw := r.URL.Query().Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Supplier ID", err.Error())
			return
		}
		filter.SupplierID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := TransactionStatus(raw)
		filter.Status = &status
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	list, total, err := h.service.ListViews(r.Context(), filter)
	if err != nil {
		h.logger.Error("list ap transactions", slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": list, "total": total})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	txn, err := h.service.GetView(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	in.TransactionID = id
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "ap"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrDuplicate, err))
				return
			}
			httpx.RespondError(w, err)
			return
		}
	}
	payment, err := h.service.RecordPayment(r.Context(), in, actor)
	if err != nil {
		if idemKey != "" && h.idem != nil {
			// Release the key so the client can retry after a failure.
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		h.logger.Error("record ap payment", slog.Int64("transaction", id), slog.Any("error", err))
		httpx.RespondError(w, mapErr(err))
		return
	}
	if h.aging != nil {
		h.aging.Invalidate(r.Context())
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) Aging(w http.ResponseWriter, r *http.Request) {
	summary, err := h.aging.Summary(r.Context())
	if err != nil {
		h.logger.Error("ap aging summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
