package procurement

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

// Handler exposes goods receipt endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers receipt routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.receive)
	r.Get("/{id}", h.show)
	r.Post("/{id}/pay", h.settle)
}

// ReceiveRequest is the goods receipt payload.
type ReceiveRequest struct {
	SupplierID int64                `json:"supplier_id" validate:"required"`
	Notes      string               `json:"notes,omitempty" validate:"max=1000"`
	Lines      []ReceiveLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ReceiveLineRequest is one incoming line with amounts still unparsed.
type ReceiveLineRequest struct {
	ProductID       int64   `json:"product_id" validate:"required"`
	Quantity        float64 `json:"quantity" validate:"required,gt=0"`
	UnitCost        string  `json:"unit_cost" validate:"required"`
	LotNumber       string  `json:"lot_number" validate:"required,max=100"`
	ManufactureDate *string `json:"manufacture_date,omitempty"`
	ExpirationDate  *string `json:"expiration_date,omitempty"`
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var req ReceiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lines := make([]ReceiveLineInput, 0, len(req.Lines))
	for i, l := range req.Lines {
		cost, err := decimal.NewFromString(l.UnitCost)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Payload",
				"lines["+strconv.Itoa(i)+"].unit_cost is not a valid amount")
			return
		}
		line := ReceiveLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitCost:  cost,
			LotNumber: l.LotNumber,
		}
		if l.ManufactureDate != nil {
			t, err := time.Parse("2006-01-02", *l.ManufactureDate)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "manufacture_date must be YYYY-MM-DD")
				return
			}
			line.ManufactureDate = &t
		}
		if l.ExpirationDate != nil {
			t, err := time.Parse("2006-01-02", *l.ExpirationDate)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", "expiration_date must be YYYY-MM-DD")
				return
			}
			line.ExpirationDate = &t
		}
		lines = append(lines, line)
	}
	actor, _ := shared.ActorFromContext(r.Context())
	rec, err := h.service.Receive(r.Context(), ReceiveInput{
		SupplierID: req.SupplierID,
		Notes:      req.Notes,
		Lines:      lines,
		ActorID:    actor.ID,
	})
	if err != nil {
		h.logger.Error("receive goods", slog.Any("error", err), slog.Int64("supplier_id", req.SupplierID))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "receipt id must be numeric")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) settle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "receipt id must be numeric")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	rec, err := h.service.SettlePayment(r.Context(), id, actor.ID)
	if err != nil {
		h.logger.Error("settle receipt", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := shared.ParsePage(r)
	var from, to time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "from must be YYYY-MM-DD")
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "to must be YYYY-MM-DD")
			return
		}
		to = t.Add(24 * time.Hour)
	}
	items, total, err := h.service.List(r.Context(), from, to, page.Limit, page.Offset)
	if err != nil {
		h.logger.Error("list receipts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipts": items, "total": total})
}
