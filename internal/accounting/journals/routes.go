package journals

import (
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/platform/httpx"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/void", h.Void)
	r.Post("/{id}/reverse", h.Reverse)
}

// mapJournalErr rewraps accounting sentinels as transport sentinels so the
// problem-details writer picks the right status.
func mapJournalErr(err error) error {
	switch {
	case errors.Is(err, shared.ErrJournalNotFound):
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, err)
	case errors.Is(err, shared.ErrSourceAlreadyLinked):
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, err)
	case errors.Is(err, shared.ErrPeriodLocked),
		errors.Is(err, shared.ErrInvalidPeriod),
		errors.Is(err, shared.ErrInvalidStatus):
		return fmt.Errorf("%w: %s", httpx.ErrConflict, err)
	case errors.Is(err, shared.ErrUnbalanced),
		errors.Is(err, shared.ErrTooFewLines),
		errors.Is(err, shared.ErrDateOutOfRange):
		return fmt.Errorf("%w: %s", httpx.ErrValidation, err)
	}
	return err
}
