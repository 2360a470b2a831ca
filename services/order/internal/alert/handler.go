package alert

import (
	"encoding/json"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 10

type Handler struct {
	mutes  MuteStore
	tlm    *telemetry.HTTP
	logger apt.Logger
}

func NewHandler(mutes MuteStore, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{mutes: mutes, tlm: telemetry.NewHTTP(), logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/restaurants/{restaurantID}/alerts/mute", h.GetMute)
	r.Put("/restaurants/{restaurantID}/alerts/mute", h.SetMute)
}

type MuteRequest struct {
	Muted *bool `json:"muted"`
}

type MuteState struct {
	RestaurantID uuid.UUID `json:"restaurant_id"`
	Muted        bool      `json:"muted"`
}

func (h *Handler) GetMute(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AlertHandler.GetMute")
	defer finish()

	restaurantID, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid restaurantID parameter")
		return
	}

	muted, err := h.mutes.Muted(r.Context(), restaurantID)
	if err != nil {
		h.logger.Error("cannot read mute flag", "restaurant_id", restaurantID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not read mute flag")
		return
	}

	apt.RespondSuccess(w, MuteState{RestaurantID: restaurantID, Muted: muted})
}

func (h *Handler) SetMute(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "AlertHandler.SetMute")
	defer finish()

	restaurantID, err := uuid.Parse(chi.URLParam(r, "restaurantID"))
	if err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid restaurantID parameter")
		return
	}

	var req MuteRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Muted == nil {
		apt.RespondError(w, http.StatusBadRequest, "Body must be {\"muted\": true|false}")
		return
	}

	if err := h.mutes.SetMuted(r.Context(), restaurantID, *req.Muted); err != nil {
		h.logger.Error("cannot save mute flag", "restaurant_id", restaurantID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not save mute flag")
		return
	}

	h.logger.Info("alert mute changed", "restaurant_id", restaurantID.String(), "muted", *req.Muted)
	apt.RespondSuccess(w, MuteState{RestaurantID: restaurantID, Muted: *req.Muted})
}
