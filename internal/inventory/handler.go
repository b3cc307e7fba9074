package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/caravel-dms/caravel/internal/platform/httpx"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Handler exposes stock movement endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers movement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.journal)
	r.Post("/", h.record)
}

// RecordMovementRequest is the manual movement payload. Order and receipt
// flows write their movements inside their own transactions and never hit
// this endpoint.
type RecordMovementRequest struct {
	ProductID int64       `json:"product_id" validate:"required"`
	Type      string      `json:"type" validate:"required,oneof=IN OUT ADJUST LOSS"`
	Quantity  float64     `json:"quantity" validate:"required"`
	Reason    *LossReason `json:"reason,omitempty"`
	LotID     *int64      `json:"lot_id,omitempty"`
	Note      string      `json:"note,omitempty" validate:"max=500"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordMovementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	m, err := h.service.Apply(r.Context(), ApplyInput{
		ProductID: req.ProductID,
		Type:      MovementType(req.Type),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		LotID:     req.LotID,
		RefKind:   "manual",
		Note:      req.Note,
		ActorID:   actor.ID,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrInvalidType) || errors.Is(err, ErrInvalidReason) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Movement", err.Error())
			return
		}
		h.logger.Error("record movement", slog.Any("error", err), slog.Int64("product_id", req.ProductID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) journal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePage(r)
	filter := MovementFilter{
		Type:   MovementType(q.Get("type")),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "product_id must be numeric")
			return
		}
		filter.ProductID = id
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

	movements, total, err := h.service.Journal(r.Context(), filter)
	if err != nil {
		if errors.Is(err, ErrInvalidType) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", err.Error())
			return
		}
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": movements, "total": total})
}
