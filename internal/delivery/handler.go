package delivery

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/caravel-dms/caravel/internal/platform/httpx"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Handler exposes delivery transition endpoints nested under an order.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers transition routes on the orders subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/assign", h.assign)
	r.Post("/{id}/deliver", h.confirm)
	r.Post("/{id}/cancel", h.cancel)
}

func orderID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

// AssignDriverRequest names the driver taking the run.
type AssignDriverRequest struct {
	DriverID int64 `json:"driver_id" validate:"required"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "order id must be numeric")
		return
	}
	var req AssignDriverRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	o, err := h.service.AssignDriver(r.Context(), id, req.DriverID, actor.ID)
	if err != nil {
		h.logger.Error("assign driver", slog.Any("error", err), slog.Int64("order_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// ConfirmDeliveryRequest carries the proof-of-delivery notes.
type ConfirmDeliveryRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=1000"`
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "order id must be numeric")
		return
	}
	var req ConfirmDeliveryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	o, err := h.service.Confirm(r.Context(), id, req.Notes, actor.ID)
	if err != nil {
		h.logger.Error("confirm delivery", slog.Any("error", err), slog.Int64("order_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "order id must be numeric")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	o, err := h.service.Cancel(r.Context(), id, actor.ID)
	if err != nil {
		h.logger.Error("cancel order", slog.Any("error", err), slog.Int64("order_id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}
