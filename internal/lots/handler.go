package lots

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/caravel-dms/caravel/internal/platform/httpx"
	"github.com/caravel-dms/caravel/internal/shared"
)

// Handler exposes lot registry endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers lot routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePage(r)
	filter := ListFilter{Limit: page.Limit, Offset: page.Offset}
	if v := q.Get("product_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "product_id must be numeric")
			return
		}
		filter.ProductID = id
	}
	status := Status(q.Get("status"))
	switch status {
	case "", StatusGood, StatusNearExpiry, StatusExpired:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "unknown lot status")
		return
	}
	items, err := h.service.List(r.Context(), filter, status)
	if err != nil {
		h.logger.Error("list lots", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lots": items})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "lot id must be numeric")
		return
	}
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

// CreateLotRequest registers a lot directly, outside procurement.
type CreateLotRequest struct {
	ProductID       int64   `json:"product_id" validate:"required"`
	LotNumber       string  `json:"lot_number" validate:"required,max=100"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	ManufactureDate *string `json:"manufacture_date,omitempty"`
	ExpirationDate  *string `json:"expiration_date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateLotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := CreateLotInput{
		ProductID: req.ProductID,
		LotNumber: req.LotNumber,
		Quantity:  req.Quantity,
	}
	if req.ManufactureDate != nil {
		t, err := time.Parse("2006-01-02", *req.ManufactureDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "manufacture_date must be YYYY-MM-DD")
			return
		}
		input.ManufactureDate = &t
	}
	if req.ExpirationDate != nil {
		t, err := time.Parse("2006-01-02", *req.ExpirationDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "expiration_date must be YYYY-MM-DD")
			return
		}
		input.ExpirationDate = &t
	}
	l, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.logger.Error("create lot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}
