package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/espacoca/agenda/services/agenda-service/internal/booking"
	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
	"github.com/espacoca/agenda/services/agenda-service/internal/storage"
)

// AdminStore is the slice of the store the admin surface needs directly,
// i.e. everything that does not go through the booking manager.
type AdminStore interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	CancelByID(ctx context.Context, id string) (model.Appointment, error)
	RescheduleByID(ctx context.Context, id string, newStart, newEnd time.Time) (model.Appointment, error)
	UpdateNotesByID(ctx context.Context, id, notes string) (model.Appointment, error)
	ListBlocksBetween(ctx context.Context, from, to time.Time) ([]model.Block, error)
	DeleteBlock(ctx context.Context, id string) error
	ListOverrides(ctx context.Context) ([]model.ScheduleOverride, error)
	UpsertOverride(ctx context.Context, ov model.ScheduleOverride) error
	DeleteOverride(ctx context.Context, date string) error
	ListCustomers(ctx context.Context, limit int) ([]model.Customer, error)
	ListServices(ctx context.Context) ([]model.Service, error)
}

// AdminHandler is the owner's management surface. One handler per resource,
// method-dispatched.
type AdminHandler struct {
	store  AdminStore
	mgr    *booking.Manager
	cal    *calendar.Calendar
	logger *slog.Logger
	now    func() time.Time
}

func NewAdminHandler(store AdminStore, mgr *booking.Manager, cal *calendar.Calendar, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		store:  store,
		mgr:    mgr,
		cal:    cal,
		logger: logger,
		now:    time.Now,
	}
}

// parseRange reads from/to civil dates off the query, defaulting to the
// coming 30 days.
func (h *AdminHandler) parseRange(r *http.Request) (time.Time, time.Time, bool) {
	now := h.now().In(h.cal.Location())
	from := h.cal.Midnight(now)
	to := from.AddDate(0, 0, 30)

	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := h.cal.ParseDate(raw)
		if err != nil {
			return from, to, false
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := h.cal.ParseDate(raw)
		if err != nil {
			return from, to, false
		}
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, true
}

type adminAppointmentRequest struct {
	Phone    string   `json:"phone"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
	StartsAt string   `json:"starts_at"`
	Notes    string   `json:"notes"`
}

type adminPatchRequest struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	StartsAt string  `json:"starts_at"`
	EndsAt   string  `json:"ends_at"`
	Notes    *string `json:"notes"`
}

func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		from, to, ok := h.parseRange(r)
		if !ok {
			writeErrorMsg(w, http.StatusBadRequest, "invalid from/to date")
			return
		}
		appts, err := h.store.ListBetween(r.Context(), from, to)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"appointments": appts})

	case http.MethodPost:
		var req adminAppointmentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "starts_at inválido, use o formato RFC3339")
			return
		}
		appt, err := h.mgr.Book(r.Context(), booking.BookRequest{
			Phone:      strings.TrimSpace(req.Phone),
			Name:       strings.TrimSpace(req.Name),
			ServiceIDs: req.Services,
			StartsAt:   startsAt,
			Notes:      req.Notes,
		}, h.now())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, appt)

	case http.MethodPatch:
		h.patchAppointment(w, r)

	default:
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AdminHandler) patchAppointment(w http.ResponseWriter, r *http.Request) {
	var req adminPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "id must be a valid uuid")
		return
	}

	ctx := r.Context()
	var appt model.Appointment
	var err error
	switch {
	case req.Status == model.StatusCancelled:
		appt, err = h.store.CancelByID(ctx, req.ID)

	case req.StartsAt != "":
		var newStart time.Time
		newStart, err = time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "starts_at inválido, use o formato RFC3339")
			return
		}
		var newEnd time.Time
		if req.EndsAt != "" {
			newEnd, err = time.Parse(time.RFC3339, req.EndsAt)
			if err != nil {
				writeErrorMsg(w, http.StatusBadRequest, "ends_at inválido, use o formato RFC3339")
				return
			}
			if !newEnd.After(newStart) {
				writeErrorMsg(w, http.StatusBadRequest, "ends_at deve ser depois de starts_at")
				return
			}
		} else {
			// Keep the current duration when only the start moves.
			var current model.Appointment
			current, err = h.store.GetByID(ctx, req.ID)
			if err != nil {
				break
			}
			newEnd = newStart.Add(current.EndsAt.Sub(current.StartsAt))
		}
		appt, err = h.store.RescheduleByID(ctx, req.ID, newStart, newEnd)

	case req.Notes != nil:
		appt, err = h.store.UpdateNotesByID(ctx, req.ID, *req.Notes)

	default:
		writeErrorMsg(w, http.StatusBadRequest, "nothing to update")
		return
	}

	if err != nil {
		h.writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

type adminBlockRequest struct {
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
	Force    bool   `json:"force"`
}

func (h *AdminHandler) Blocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		from, to, ok := h.parseRange(r)
		if !ok {
			writeErrorMsg(w, http.StatusBadRequest, "invalid from/to date")
			return
		}
		blocks, err := h.store.ListBlocksBetween(r.Context(), from, to)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks})

	case http.MethodPost:
		var req adminBlockRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "starts_at inválido, use o formato RFC3339")
			return
		}
		endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "ends_at inválido, use o formato RFC3339")
			return
		}
		blk := model.Block{Title: strings.TrimSpace(req.Title), StartsAt: startsAt, EndsAt: endsAt}
		if err := h.mgr.CreateBlock(r.Context(), &blk, req.Force); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, blk)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if _, err := uuid.Parse(id); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "id must be a valid uuid")
			return
		}
		if err := h.store.DeleteBlock(r.Context(), id); err != nil {
			h.writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AdminHandler) Overrides(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		overrides, err := h.store.ListOverrides(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})

	case http.MethodPut:
		var ov model.ScheduleOverride
		if !decodeJSON(w, r, &ov) {
			return
		}
		if _, err := h.cal.ParseDate(ov.Date); err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "data inválida, use o formato YYYY-MM-DD")
			return
		}
		if err := h.store.UpsertOverride(r.Context(), ov); err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ov)

	case http.MethodDelete:
		date := r.URL.Query().Get("date")
		if date == "" {
			writeErrorMsg(w, http.StatusBadRequest, "date is required")
			return
		}
		if err := h.store.DeleteOverride(r.Context(), date); err != nil {
			h.writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *AdminHandler) Customers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	customers, err := h.store.ListCustomers(r.Context(), 0)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	services, err := h.store.ListServices(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

func (h *AdminHandler) writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case storage.IsNotFound(err):
		writeErrorMsg(w, http.StatusNotFound, "não encontrado")
	case storage.IsConflict(err):
		writeErrorMsg(w, http.StatusConflict, "conflito de horário")
	default:
		h.logger.Error("admin request failed", "err", err)
		writeErrorMsg(w, http.StatusInternalServerError, "erro interno, tente novamente")
	}
}
