package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/caravel-dms/caravel/internal/platform/httpx"
)

// Handler exposes dashboard report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/exports/movements", h.exportMovements)
	r.Get("/exports/orders", h.exportOrders)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("build summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// exportRange parses ?from=&to= (YYYY-MM-DD), defaulting to the last 30 days.
func exportRange(r *http.Request) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to = t.Add(24 * time.Hour)
	}
	return from, to, true
}

func (h *Handler) exportMovements(w http.ResponseWriter, r *http.Request) {
	from, to, ok := exportRange(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "dates must be YYYY-MM-DD")
		return
	}
	data, err := h.service.ExportMovements(r.Context(), from, to)
	if err != nil {
		h.logger.Error("export movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	writeXLSX(w, "movements.xlsx", data)
}

func (h *Handler) exportOrders(w http.ResponseWriter, r *http.Request) {
	from, to, ok := exportRange(r)
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "dates must be YYYY-MM-DD")
		return
	}
	data, err := h.service.ExportOrders(r.Context(), from, to)
	if err != nil {
		h.logger.Error("export orders", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	writeXLSX(w, "orders.xlsx", data)
}

func writeXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
