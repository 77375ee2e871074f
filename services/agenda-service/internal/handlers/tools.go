package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/availability"
	"github.com/espacoca/agenda/services/agenda-service/internal/booking"
	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

// customerPhoneHeader carries the caller identity; the conversational layer
// in front of this service authenticates the customer and sets it.
const customerPhoneHeader = "X-Customer-Phone"

// defaultSlotDuration is assumed when check_calendar is called before the
// customer picked services.
const defaultSlotDuration = 30 * time.Minute

// ToolsHandler is the function-calling surface consumed by the
// conversational layer. Definitions mirrors the handlers one-to-one.
type ToolsHandler struct {
	mgr    *booking.Manager
	finder *availability.Finder
	cal    *calendar.Calendar
	logger *slog.Logger
	now    func() time.Time
}

func NewToolsHandler(mgr *booking.Manager, finder *availability.Finder, cal *calendar.Calendar, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{
		mgr:    mgr,
		finder: finder,
		cal:    cal,
		logger: logger,
		now:    time.Now,
	}
}

type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func (h *ToolsHandler) Definitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	defs := []toolDefinition{
		{
			Name:        "check_calendar",
			Description: "Consulta horários livres. Informe a data (YYYY-MM-DD) para um dia específico ou omita para os próximos dias.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date":        map[string]any{"type": "string", "description": "Data desejada no formato YYYY-MM-DD (opcional)."},
					"service_ids": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Serviços desejados (opcional)."},
				},
			},
		},
		{
			Name:        "book_appointment",
			Description: "Agenda um horário para a cliente. Use um horário retornado por check_calendar.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":      map[string]any{"type": "string", "description": "Nome da cliente."},
					"services":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Serviços desejados."},
					"starts_at": map[string]any{"type": "string", "description": "Início no formato RFC3339."},
				},
				"required": []string{"services", "starts_at"},
			},
		},
		{
			Name:        "reschedule_appointment",
			Description: "Remarca o próximo agendamento da cliente para um novo horário, mantendo os mesmos serviços.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"starts_at": map[string]any{"type": "string", "description": "Novo início no formato RFC3339."},
				},
				"required": []string{"starts_at"},
			},
		},
		{
			Name:        "list_my_appointments",
			Description: "Lista os agendamentos futuros da cliente.",
			Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "cancel_appointment",
			Description: "Cancela o próximo agendamento da cliente, ou o agendamento de uma data específica.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"date": map[string]any{"type": "string", "description": "Data do agendamento a cancelar, YYYY-MM-DD (opcional)."},
				},
			},
		},
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": defs})
}

type checkCalendarRequest struct {
	Date       string   `json:"date"`
	ServiceIDs []string `json:"service_ids"`
}

type slotResponse struct {
	Slots   []availability.Slot `json:"slots"`
	Message string              `json:"message"`
}

func (h *ToolsHandler) CheckCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req checkCalendarRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	duration := defaultSlotDuration
	if len(req.ServiceIDs) > 0 {
		_, d, err := h.mgr.ResolveServices(r.Context(), req.ServiceIDs)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		duration = d
	}

	var day *time.Time
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := h.cal.ParseDate(req.Date)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "data inválida, use o formato YYYY-MM-DD")
			return
		}
		day = &parsed
	}

	slots, err := h.finder.FindSlots(r.Context(), day, duration, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	msg := "Horários disponíveis:"
	if len(slots) == 0 {
		msg = "Nenhum horário disponível para essa data."
	}
	writeJSON(w, http.StatusOK, slotResponse{Slots: slots, Message: msg})
}

type bookRequest struct {
	Name     string   `json:"name"`
	Services []string `json:"services"`
	StartsAt string   `json:"starts_at"`
}

type appointmentResponse struct {
	AppointmentID string   `json:"appointment_id"`
	StartsAt      string   `json:"starts_at"`
	EndsAt        string   `json:"ends_at"`
	Services      []string `json:"services"`
	Status        string   `json:"status"`
	Message       string   `json:"message,omitempty"`
}

func (h *ToolsHandler) appointmentResponse(appt model.Appointment, message string) appointmentResponse {
	loc := h.cal.Location()
	return appointmentResponse{
		AppointmentID: appt.ID,
		StartsAt:      appt.StartsAt.In(loc).Format(time.RFC3339),
		EndsAt:        appt.EndsAt.In(loc).Format(time.RFC3339),
		Services:      appt.ServiceIDs,
		Status:        appt.Status,
		Message:       message,
	}
}

func (h *ToolsHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phone := strings.TrimSpace(r.Header.Get(customerPhoneHeader))
	if phone == "" {
		writeErrorMsg(w, http.StatusBadRequest, "missing "+customerPhoneHeader+" header")
		return
	}
	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "starts_at inválido, use o formato RFC3339")
		return
	}

	appt, err := h.mgr.Book(r.Context(), booking.BookRequest{
		Phone:      phone,
		Name:       strings.TrimSpace(req.Name),
		ServiceIDs: req.Services,
		StartsAt:   startsAt,
	}, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	local := appt.StartsAt.In(h.cal.Location())
	msg := fmt.Sprintf("Agendamento confirmado para %s às %s.", local.Format("02/01"), local.Format("15:04"))
	writeJSON(w, http.StatusCreated, h.appointmentResponse(appt, msg))
}

type rescheduleRequest struct {
	StartsAt string `json:"starts_at"`
}

func (h *ToolsHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phone := strings.TrimSpace(r.Header.Get(customerPhoneHeader))
	if phone == "" {
		writeErrorMsg(w, http.StatusBadRequest, "missing "+customerPhoneHeader+" header")
		return
	}
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	newStart, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "starts_at inválido, use o formato RFC3339")
		return
	}

	appt, err := h.mgr.Reschedule(r.Context(), phone, newStart, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	local := appt.StartsAt.In(h.cal.Location())
	msg := fmt.Sprintf("Agendamento remarcado para %s às %s.", local.Format("02/01"), local.Format("15:04"))
	writeJSON(w, http.StatusOK, h.appointmentResponse(appt, msg))
}

func (h *ToolsHandler) ListMyAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phone := strings.TrimSpace(r.Header.Get(customerPhoneHeader))
	if phone == "" {
		writeErrorMsg(w, http.StatusBadRequest, "missing "+customerPhoneHeader+" header")
		return
	}

	appts, err := h.mgr.ListUpcoming(r.Context(), phone, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, h.appointmentResponse(appt, ""))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": items})
}

type cancelRequest struct {
	Date string `json:"date"`
}

func (h *ToolsHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorMsg(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	phone := strings.TrimSpace(r.Header.Get(customerPhoneHeader))
	if phone == "" {
		writeErrorMsg(w, http.StatusBadRequest, "missing "+customerPhoneHeader+" header")
		return
	}
	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var day *time.Time
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := h.cal.ParseDate(req.Date)
		if err != nil {
			writeErrorMsg(w, http.StatusBadRequest, "data inválida, use o formato YYYY-MM-DD")
			return
		}
		day = &parsed
	}

	appt, err := h.mgr.Cancel(r.Context(), phone, day, h.now())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	local := appt.StartsAt.In(h.cal.Location())
	msg := fmt.Sprintf("Agendamento de %s às %s cancelado.", local.Format("02/01"), local.Format("15:04"))
	writeJSON(w, http.StatusOK, h.appointmentResponse(appt, msg))
}
