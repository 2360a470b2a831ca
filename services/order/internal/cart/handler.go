package cart

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MaxBodyBytes = 1 << 16

type Handler struct {
	logger   apt.Logger
	tlm      *telemetry.HTTP
	validate *validator.Validate
	store    Store
	catalog  Catalog
}

func NewHandler(store Store, catalog Catalog, logger apt.Logger) *Handler {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Handler{
		logger:   logger,
		tlm:      telemetry.NewHTTP(),
		validate: validator.New(),
		store:    store,
		catalog:  catalog,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/tables/{tableID}/cart", h.GetCart)
	r.Delete("/tables/{tableID}/cart", h.ClearCart)
	r.Post("/tables/{tableID}/cart/items", h.AddItem)
	r.Put("/tables/{tableID}/cart/items/{itemID}", h.UpdateQuantity)
	r.Delete("/tables/{tableID}/cart/items/{itemID}", h.RemoveItem)
}

type AddItemRequest struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity" validate:"lte=1000"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=-1000,lte=1000"`
}

// View is the cart plus its derived reads.
type View struct {
	Cart
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func viewOf(c Cart) View {
	return View{Cart: c, TotalItems: c.TotalItems(), TotalPrice: c.TotalPrice()}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.GetCart")
	defer finish()

	log := h.log(r)

	tableID, ok := parseID(w, r, log, "tableID")
	if !ok {
		return
	}

	c, err := h.store.Get(r.Context(), tableID)
	if err != nil {
		log.Error("cannot load cart", "table_id", tableID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not load cart")
		return
	}

	apt.RespondSuccess(w, viewOf(c))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.AddItem")
	defer finish()

	log := h.log(r)

	tableID, ok := parseID(w, r, log, "tableID")
	if !ok {
		return
	}

	var req AddItemRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.MenuItemID == uuid.Nil {
		apt.RespondError(w, http.StatusBadRequest, "menu_item_id is required")
		return
	}

	item, err := h.catalog.MenuItem(r.Context(), tableID, req.MenuItemID)
	if errors.Is(err, ErrTableNotFound) {
		apt.RespondError(w, http.StatusNotFound, "Table not found")
		return
	}
	if errors.Is(err, ErrItemNotFound) {
		apt.RespondError(w, http.StatusNotFound, "Menu item not found")
		return
	}
	if err != nil {
		log.Info("cannot add menu item", "menu_item_id", req.MenuItemID.String(), "error", err)
		apt.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.store.Update(r.Context(), tableID, func(c *Cart) error {
		c.AddItem(item, req.Quantity)
		return nil
	})
	if err != nil {
		log.Error("cannot update cart", "table_id", tableID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update cart")
		return
	}

	apt.RespondSuccess(w, viewOf(c))
}

func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.UpdateQuantity")
	defer finish()

	log := h.log(r)

	tableID, ok := parseID(w, r, log, "tableID")
	if !ok {
		return
	}
	itemID, ok := parseID(w, r, log, "itemID")
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	c, err := h.store.Update(r.Context(), tableID, func(c *Cart) error {
		c.UpdateQuantity(itemID, req.Quantity)
		return nil
	})
	if err != nil {
		log.Error("cannot update cart", "table_id", tableID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update cart")
		return
	}

	apt.RespondSuccess(w, viewOf(c))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.RemoveItem")
	defer finish()

	log := h.log(r)

	tableID, ok := parseID(w, r, log, "tableID")
	if !ok {
		return
	}
	itemID, ok := parseID(w, r, log, "itemID")
	if !ok {
		return
	}

	c, err := h.store.Update(r.Context(), tableID, func(c *Cart) error {
		c.RemoveItem(itemID)
		return nil
	})
	if err != nil {
		log.Error("cannot update cart", "table_id", tableID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not update cart")
		return
	}

	apt.RespondSuccess(w, viewOf(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "CartHandler.ClearCart")
	defer finish()

	log := h.log(r)

	tableID, ok := parseID(w, r, log, "tableID")
	if !ok {
		return
	}

	if err := h.store.Clear(r.Context(), tableID); err != nil {
		log.Error("cannot clear cart", "table_id", tableID.String(), "error", err)
		apt.RespondError(w, http.StatusInternalServerError, "Could not clear cart")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request, log apt.Logger, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		log.Debug("invalid id parameter", "param", name)
		apt.RespondError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log apt.Logger, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Debug("failed to read request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		log.Debug("failed to decode request body", "error", err)
		apt.RespondError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		apt.RespondError(w, http.StatusBadRequest, "Invalid request")
		return false
	}
	return true
}

func (h *Handler) log(r *http.Request) apt.Logger {
	return h.logger.With("request_id", apt.RequestIDFrom(r.Context()))
}
