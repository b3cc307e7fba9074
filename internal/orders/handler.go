package orders

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/caravel-dms/caravel/internal/platform/httpx"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Handler exposes order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	idem     *shared.IdempotencyStore
	validate *validator.Validate
}

// NewHandler builds Handler. A nil idempotency store disables the
// Idempotency-Key check.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idem: idem, validate: validator.New()}
}

// MountRoutes registers order routes. Delivery transitions are mounted by
// the delivery handler on the same subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

// CreateOrderRequest is the order creation payload. Prices travel as strings
// so the client controls the exact decimal representation.
type CreateOrderRequest struct {
	ClientID int64             `json:"client_id" validate:"required"`
	Notes    string            `json:"notes,omitempty" validate:"max=1000"`
	Lines    []OrderLineString `json:"lines" validate:"required,min=1,dive"`
}

// OrderLineString is one requested line with the price still unparsed.
type OrderLineString struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Quantity  float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice string  `json:"unit_price" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for i, l := range req.Lines {
		price, err := decimal.NewFromString(l.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload",
				"lines["+strconv.Itoa(i)+"].unit_price is not a valid amount")
			return
		}
		lines = append(lines, LineInput{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: price})
	}
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), idemKey, "orders"); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	actor, _ := shared.ActorFromContext(r.Context())
	o, err := h.service.Create(r.Context(), CreateOrderInput{
		ClientID: req.ClientID,
		Notes:    req.Notes,
		Lines:    lines,
		ActorID:  actor.ID,
	})
	if err != nil {
		if idemKey != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), idemKey)
		}
		h.logger.Error("create order", slog.Any("error", err), slog.Int64("client_id", req.ClientID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "order id must be numeric")
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePage(r)
	filter := ListFilter{
		DeliveryStatus: DeliveryStatus(q.Get("delivery_status")),
		PaymentStatus:  PaymentStatus(q.Get("payment_status")),
		Limit:          page.Limit,
		Offset:         page.Offset,
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "client_id must be numeric")
			return
		}
		filter.ClientID = id
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return
		}
		filter.To = t.Add(24 * time.Hour)
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": items, "total": total})
}
