package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/appetiteclub/tableside/pkg/enums/orderstatus"
	"github.com/appetiteclub/tableside/pkg/enums/tablestatus"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MaxBodyBytes = 1 << 20

type Handler struct {
	logger    apt.Logger
	config    *apt.Config
	tlm       *telemetry.HTTP
	validate  *validator.Validate
	submitter *Submitter
	status    *StatusService
	repos     Repos
	publisher events.Publisher
}

type HandlerDeps struct {
	Repos     Repos
	Submitter *Submitter
	Status    *StatusService
	Publisher events.Publisher
}

func NewHandler(hd HandlerDeps, config *apt.Config, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	return &Handler{
		config:    config,
		logger:    logger,
		tlm:       telemetry.NewHTTP(),
		validate:  validator.New(),
		submitter: hd.Submitter,
		status:    hd.Status,
		repos:     hd.Repos,
		publisher: hd.Publisher,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/tables/{tableID}/orders", h.SubmitOrder)
	r.Patch("/tables/{tableID}/status", h.UpdateTableStatus)

	r.Get("/orders/{orderID}", h.GetOrder)
	r.Patch("/orders/{orderID}/status", h.UpdateOrderStatus)
	r.Patch("/orders/{orderID}/priority", h.UpdateOrderPriority)
	r.Delete("/orders/{orderID}", h.DeleteOrder)

	r.Get("/restaurants/{restaurantID}", h.GetRestaurant)
	r.Put("/restaurants/{restaurantID}", h.UpdateRestaurant)
	r.Get("/restaurants/{restaurantID}/orders", h.ListOrders)
	r.Post("/restaurants/{restaurantID}/orders/status", h.BulkUpdateOrderStatus)
	r.Get("/restaurants/{restaurantID}/tables", h.ListTables)
	r.Get("/restaurants/{restaurantID}/menu", h.ListMenu)
}

// Orders

type SubmitOrderRequest struct {
	SpecialInstructions string `json:"special_instructions" validate:"max=500"`
	CustomerName        string `json:"customer_name" validate:"max=120"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending preparing ready served completed"`
	Version int    `json:"version" validate:"required,gte=1"`
}

type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=high normal"`
}

type BulkStatusRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids" validate:"required,min=1,max=100"`
	Status   string      `json:"status" validate:"required,oneof=pending preparing ready served completed"`
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.SubmitOrder")
	defer finish()

	log := h.log(r)

	tableID, ok := h.parseIDParam(w, r, log, "tableID")
	if !ok {
		return
	}

	var req SubmitOrderRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.submitter.SubmitTable(r.Context(), tableID, req.SpecialInstructions, WithCustomerName(req.CustomerName))
	if err != nil {
		log.Info("order submission rejected", "table_id", tableID.String(), "error", err)
		h.respondError(w, err, "Could not submit order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	w.WriteHeader(http.StatusCreated)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "orderID")
	if !ok {
		return
	}

	order, err := h.status.Get(r.Context(), id)
	if err != nil {
		log.Debug("error loading order", "error", err, "id", id.String())
		h.respondError(w, err, "Could not load order")
		return
	}

	links := apt.RESTfulLinksFor(order)
	apt.RespondSuccess(w, order, links...)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListOrders")
	defer finish()

	log := h.log(r)

	restaurantID, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	filter := OrderFilter{RestaurantID: restaurantID}
	if status := r.URL.Query().Get("status"); status != "" {
		if _, ok := orderstatus.Parse(status); !ok {
			apt.RespondError(w, http.StatusBadRequest, "Invalid status parameter")
			return
		}
		filter.Statuses = []string{status}
	} else if r.URL.Query().Get("active") == "true" {
		for _, s := range orderstatus.Active {
			filter.Statuses = append(filter.Statuses, s.Code())
		}
	}
	if tableIDStr := r.URL.Query().Get("table_id"); tableIDStr != "" {
		tableID, err := uuid.Parse(tableIDStr)
		if err != nil {
			log.Debug("invalid table_id parameter", "table_id", tableIDStr)
			apt.RespondError(w, http.StatusBadRequest, "Invalid table_id parameter")
			return
		}
		filter.TableID = tableID
	}

	orders, err := h.status.List(r.Context(), filter)
	if err != nil {
		log.Error("error retrieving orders", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve orders")
		return
	}

	apt.RespondCollection(w, orders, "order")
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "orderID")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.status.UpdateStatus(r.Context(), id, req.Status, req.Version)
	if err != nil {
		log.Info("status update rejected", "order_id", id.String(), "status", req.Status, "error", err)
		h.respondError(w, err, "Could not update order status")
		return
	}

	apt.RespondSuccess(w, order, apt.RESTfulLinksFor(order)...)
}

func (h *Handler) UpdateOrderPriority(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateOrderPriority")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "orderID")
	if !ok {
		return
	}

	var req UpdatePriorityRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	order, err := h.status.UpdatePriority(r.Context(), id, req.Priority)
	if err != nil {
		h.respondError(w, err, "Could not update order priority")
		return
	}

	apt.RespondSuccess(w, order, apt.RESTfulLinksFor(order)...)
}

func (h *Handler) BulkUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.BulkUpdateOrderStatus")
	defer finish()

	log := h.log(r)

	restaurantID, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	var req BulkStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	ids := make([]uuid.UUID, 0, len(req.OrderIDs))
	for _, id := range req.OrderIDs {
		if id != uuid.Nil {
			ids = append(ids, id)
		}
	}

	results := h.status.BulkUpdateStatus(r.Context(), restaurantID, ids, req.Status)
	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	log.Info("bulk status update", "restaurant_id", restaurantID.String(), "status", req.Status, "requested", len(ids), "failed", failed)

	apt.RespondSuccess(w, results)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteOrder")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "orderID")
	if !ok {
		return
	}

	if err := h.status.Delete(r.Context(), id); err != nil {
		log.Error("error deleting order", "error", err, "id", id.String())
		h.respondError(w, err, "Could not delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Restaurants and tables

type UpdateRestaurantRequest struct {
	Name            string          `json:"name" validate:"required,max=120"`
	TaxRatePercent  decimal.Decimal `json:"tax_rate_percent"`
	CurrencySymbol  string          `json:"currency_symbol" validate:"required,max=8"`
	PrepTimeMinutes int             `json:"prep_time_minutes" validate:"gte=0,lte=600"`
}

type UpdateTableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available occupied reserved unavailable"`
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.GetRestaurant")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	restaurant, err := h.repos.Restaurants.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Could not load restaurant")
		return
	}

	apt.RespondSuccess(w, restaurant, apt.RESTfulLinksFor(restaurant)...)
}

func (h *Handler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateRestaurant")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	var req UpdateRestaurantRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}
	if req.TaxRatePercent.IsNegative() || req.TaxRatePercent.GreaterThan(decimal.NewFromInt(100)) {
		apt.RespondError(w, http.StatusBadRequest, "tax_rate_percent must be between 0 and 100")
		return
	}

	restaurant, err := h.repos.Restaurants.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Could not load restaurant")
		return
	}

	restaurant.Name = req.Name
	restaurant.TaxRatePercent = req.TaxRatePercent
	restaurant.CurrencySymbol = req.CurrencySymbol
	if req.PrepTimeMinutes > 0 {
		restaurant.PrepTimeMinutes = req.PrepTimeMinutes
	}
	restaurant.BeforeUpdate()

	if err := h.repos.Restaurants.Save(r.Context(), restaurant); err != nil {
		log.Error("cannot save restaurant", "id", id.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not save restaurant")
		return
	}

	log.Info("restaurant updated", "id", id.String(), "tax_rate_percent", restaurant.TaxRatePercent.String())
	apt.RespondSuccess(w, restaurant, apt.RESTfulLinksFor(restaurant)...)
}

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListTables")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	tables, err := h.repos.Tables.ListByRestaurant(r.Context(), id)
	if err != nil {
		log.Error("error retrieving tables", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve tables")
		return
	}

	apt.RespondCollection(w, tables, "table")
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListMenu")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "restaurantID")
	if !ok {
		return
	}

	items, err := h.repos.MenuItems.ListByRestaurant(r.Context(), id)
	if err != nil {
		log.Error("error retrieving menu", "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not retrieve menu")
		return
	}

	apt.RespondCollection(w, items, "menu-item")
}

func (h *Handler) UpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateTableStatus")
	defer finish()

	log := h.log(r)

	id, ok := h.parseIDParam(w, r, log, "tableID")
	if !ok {
		return
	}

	var req UpdateTableStatusRequest
	if !h.decodePayload(w, r, log, &req) {
		return
	}

	table, err := h.repos.Tables.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err, "Could not load table")
		return
	}

	previous := table.Status
	table.Status = tablestatus.ByName(req.Status).Code()
	table.UpdatedAt = time.Now().UTC()
	if err := h.repos.Tables.Save(r.Context(), table); err != nil {
		log.Error("cannot save table", "id", id.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not save table")
		return
	}

	if previous != table.Status {
		h.publishTableStatus(r.Context(), table, previous)
	}

	apt.RespondSuccess(w, table, apt.RESTfulLinksFor(table)...)
}

func (h *Handler) publishTableStatus(ctx context.Context, table *Table, previous string) {
	if h.publisher == nil {
		return
	}

	evt := event.NewTableStatusChanged(
		table.RestaurantID.String(),
		table.ID.String(),
		table.Number,
		table.Status,
		previous,
	)

	payload, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("cannot encode table status event", "error", err)
		return
	}

	if err := h.publisher.Publish(ctx, event.TableStatusTopic, payload); err != nil {
		h.logger.Error("cannot publish table status event", "table_id", table.ID.String(), "error", err)
	}
}

// Helpers

func (h *Handler) parseIDParam(w http.ResponseWriter, r *http.Request, log apt.Logger, name string) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, name)
	if idStr == "" {
		log.Debug("missing id parameter", "param", name)
		apt.RespondError(w, http.StatusBadRequest, "Missing "+name+" parameter")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		log.Debug("invalid id parameter", "param", name, "value", idStr)
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}

	return id, true
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, dst); err != nil {
			log.Debug("failed to decode request body", "error", err)
			apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
			return false
		}
	}

	if err := h.validate.Struct(dst); err != nil {
		log.Debug("request validation failed", "error", err)
		apt.RespondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return "Invalid field " + verrs[0].Field() + " (" + verrs[0].Tag() + ")"
	}
	return "Invalid request"
}

func (h *Handler) respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		apt.RespondError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrTableUnavailable),
		errors.Is(err, ErrItemNotOnMenu):
		apt.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrInvalidTransition):
		apt.RespondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(fallback, "error", err)
		apt.RespondError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With(
		"request_id", apt.RequestIDFrom(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}
