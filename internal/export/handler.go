package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
)

const exportLimit = 10000

// ARSource and APSource expose the transaction listings the workbooks are
// built from.
type ARSource interface {
	List(ctx context.Context, filter ar.ListFilter) ([]ar.Transaction, int, error)
}

type APSource interface {
	List(ctx context.Context, filter ap.ListFilter) ([]ap.Transaction, int, error)
}

type Handler struct {
	arSource ARSource
	apSource APSource
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(logger *slog.Logger, arSource ARSource, apSource APSource) *Handler {
	return &Handler{arSource: arSource, apSource: apSource, logger: logger, now: time.Now}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ar.xlsx", h.ExportAR)
	r.Get("/ap.xlsx", h.ExportAP)
}

func (h *Handler) ExportAR(w http.ResponseWriter, r *http.Request) {
	filter := ar.ListFilter{Limit: exportLimit}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := ar.TransactionStatus(raw)
		filter.Status = &status
	}
	txns, _, err := h.arSource.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("export ar listing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]Row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, Row{
			Number:       t.Number,
			Counterparty: fmt.Sprintf("customer %d", t.CustomerID),
			Original:     t.OriginalAmount,
			Paid:         t.PaidAmount,
			Outstanding:  t.Outstanding(),
			DueAt:        t.DueAt,
			Status:       string(t.Status),
		})
	}
	h.serve(w, "receivables", rows)
}

func (h *Handler) ExportAP(w http.ResponseWriter, r *http.Request) {
	filter := ap.ListFilter{Limit: exportLimit}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := ap.TransactionStatus(raw)
		filter.Status = &status
	}
	txns, _, err := h.apSource.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("export ap listing", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	rows := make([]Row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, Row{
			Number:       t.Number,
			Counterparty: fmt.Sprintf("supplier %d", t.SupplierID),
			Original:     t.OriginalAmount,
			Paid:         t.PaidAmount,
			Outstanding:  t.Outstanding(),
			DueAt:        t.DueAt,
			Status:       string(t.Status),
		})
	}
	h.serve(w, "payables", rows)
}

func (h *Handler) serve(w http.ResponseWriter, sheet string, rows []Row) {
	filename := fmt.Sprintf("%s_%s.xlsx", sheet, h.now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := WriteWorkbook(w, sheet, "IDR", rows); err != nil {
		h.logger.Error("write workbook", slog.String("sheet", sheet), slog.Any("error", err))
	}
}
