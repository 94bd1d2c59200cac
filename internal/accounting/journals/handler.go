package journals

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{SourceModule: r.URL.Query().Get("source_module"), Limit: 200}
	if raw := r.URL.Query().Get("batch_id"); raw != "" {
		batchID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Batch ID", err.Error())
			return
		}
		filter.BatchID = &batchID
	}
	entries, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list journals", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"journal_entries": entries})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, mapJournalErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var input PostingInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	input.PostedBy = actor.ID
	entry, err := h.service.PostJournal(r.Context(), input)
	if err != nil {
		h.logger.Error("post journal", slog.Any("error", err))
		httpx.RespondError(w, mapJournalErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Void(w http.ResponseWriter, r *http.Request) {
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
	var body struct {
		Reason string `json:"reason"`
	}
	_ = httpx.DecodeJSON(r, &body)
	entry, err := h.service.VoidJournal(r.Context(), VoidInput{EntryID: id, ActorID: actor.ID, Reason: body.Reason})
	if err != nil {
		h.logger.Error("void journal", slog.Any("error", err))
		httpx.RespondError(w, mapJournalErr(err))
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
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
	var body struct {
		Memo string `json:"memo"`
	}
	_ = httpx.DecodeJSON(r, &body)
	entry, err := h.service.ReverseJournal(r.Context(), ReverseInput{EntryID: id, ActorID: actor.ID, Memo: body.Memo})
	if err != nil {
		h.logger.Error("reverse journal", slog.Any("error", err))
		httpx.RespondError(w, mapJournalErr(err))
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}
