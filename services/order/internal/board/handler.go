package board

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/tableside/services/order/internal/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const waitTimeout = 10 * time.Second

type Handler struct {
	registry *Registry
	tlm      *telemetry.HTTP
	logger   apt.Logger
}

func NewHandler(registry *Registry, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{registry: registry, tlm: telemetry.NewHTTP(), logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/restaurants/{restaurantID}/board", h.GetBoard)
	r.Post("/restaurants/{restaurantID}/board/orders/{orderID}/advance", h.Advance)
}

func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "BoardHandler.GetBoard")
	defer finish()

	b, ok := h.board(w, r)
	if !ok {
		return
	}

	snap, err := b.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("cannot render board", "error", err)
		apt.RespondError(w, http.StatusServiceUnavailable, "Board unavailable")
		return
	}

	apt.RespondSuccess(w, snap)
}

// Advance applies the next status step. With wait=true the response
// carries the confirmed or rejected outcome, otherwise 202 with the local
// one.
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "BoardHandler.Advance")
	defer finish()

	b, ok := h.board(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid orderID parameter")
		return
	}

	pending, err := b.Advance(r.Context(), orderID)
	switch {
	case errors.Is(err, ErrUnknownOrder):
		apt.RespondError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrCommandInFlight), errors.Is(err, ErrTerminal):
		apt.RespondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		apt.RespondError(w, http.StatusServiceUnavailable, "Board unavailable")
		return
	}

	if r.URL.Query().Get("wait") != "true" {
		apt.Respond(w, http.StatusAccepted, pending.Applied(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()

	outcome, err := pending.Wait(ctx)
	switch {
	case err == nil:
		apt.RespondSuccess(w, outcome)
	case errors.Is(err, order.ErrVersionConflict), errors.Is(err, order.ErrInvalidTransition):
		apt.Respond(w, http.StatusConflict, outcome, nil)
	case outcome.Kind == Rejected:
		apt.Respond(w, http.StatusBadGateway, outcome, nil)
	default:
		apt.Respond(w, http.StatusAccepted, pending.Applied(), nil)
	}
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) (*Board, bool) {
	restaurantID, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid restaurantID parameter")
		return nil, false
	}
	b, err := h.registry.Board(r.Context(), restaurantID)
	if errors.Is(err, ErrUnknownRestaurant) {
		apt.RespondError(w, http.StatusNotFound, "Restaurant not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("board unavailable", "restaurant_id", restaurantID.String(), "error", err)
		apt.RespondError(w, http.StatusServiceUnavailable, "Board unavailable")
		return nil, false
	}
	return b, true
}
