package booking

import (
	"context"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
	"github.com/espacoca/agenda/services/agenda-service/internal/storage"
)

// Store is the persistence surface the manager needs. *storage.Store
// implements it; tests use an in-memory fake.
type Store interface {
	ServicesByIDs(ctx context.Context, ids []string) ([]model.Service, error)
	OverrideFor(ctx context.Context, date string) (*model.ScheduleOverride, error)
	ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error)
	FindBlockOverlapping(ctx context.Context, start, end time.Time) (model.Block, error)
	CreateConfirmed(ctx context.Context, appt *model.Appointment) error
	CancelEarliestConfirmed(ctx context.Context, phone string, after time.Time, until *time.Time) (model.Appointment, error)
	RescheduleEarliestConfirmed(ctx context.Context, phone string, now, newStart, newEnd time.Time) (model.Appointment, error)
	FindEarliestConfirmed(ctx context.Context, phone string, now time.Time) (model.Appointment, error)
	ListUpcomingByPhone(ctx context.Context, phone string, now time.Time) ([]model.Appointment, error)
	CreateBlock(ctx context.Context, blk *model.Block) error
}

// Manager enforces the booking rules in front of the store. Pre-checks give
// informative conflict messages; the database exclusion constraint remains
// the authoritative guard against races.
type Manager struct {
	store Store
	cal   *calendar.Calendar
}

func NewManager(store Store, cal *calendar.Calendar) *Manager {
	return &Manager{store: store, cal: cal}
}

type BookRequest struct {
	Phone      string
	Name       string
	ServiceIDs []string
	StartsAt   time.Time
	Notes      string
}

// ResolveServices dedupes and resolves service ids, returning the services
// and the total duration. Unknown ids are a validation error.
func (m *Manager) ResolveServices(ctx context.Context, ids []string) ([]model.Service, time.Duration, error) {
	seen := make(map[string]bool, len(ids))
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		normalized = append(normalized, id)
	}
	if len(normalized) == 0 {
		return nil, 0, validationf("informe ao menos um serviço")
	}

	services, err := m.store.ServicesByIDs(ctx, normalized)
	if err != nil {
		return nil, 0, err
	}
	if len(services) != len(normalized) {
		found := make(map[string]bool, len(services))
		for _, svc := range services {
			found[svc.ID] = true
		}
		for _, id := range normalized {
			if !found[id] {
				return nil, 0, validationf("serviço desconhecido: %s", id)
			}
		}
	}

	var total time.Duration
	for _, svc := range services {
		total += time.Duration(svc.DurationMins) * time.Minute
	}
	if total <= 0 {
		return nil, 0, validationf("serviços sem duração definida")
	}
	return services, total, nil
}

// Book validates the requested window and creates a confirmed appointment.
func (m *Manager) Book(ctx context.Context, req BookRequest, now time.Time) (model.Appointment, error) {
	if req.Phone == "" {
		return model.Appointment{}, validationf("telefone é obrigatório")
	}

	services, duration, err := m.ResolveServices(ctx, req.ServiceIDs)
	if err != nil {
		return model.Appointment{}, err
	}

	start := req.StartsAt.In(m.cal.Location())
	end := start.Add(duration)
	if err := m.validateWindow(ctx, start, end, now, ""); err != nil {
		return model.Appointment{}, err
	}

	ids := make([]string, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ID)
	}
	appt := model.Appointment{
		CustomerPhone: req.Phone,
		CustomerName:  req.Name,
		ServiceIDs:    ids,
		StartsAt:      start,
		EndsAt:        end,
		Status:        model.StatusConfirmed,
		Notes:         req.Notes,
	}
	if err := m.store.CreateConfirmed(ctx, &appt); err != nil {
		if storage.IsConflict(err) {
			return model.Appointment{}, &ConflictError{}
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel cancels the customer's next upcoming appointment. With a day given,
// only that civil day is considered: the earliest confirmed appointment on it
// is the one cancelled.
func (m *Manager) Cancel(ctx context.Context, phone string, day *time.Time, now time.Time) (model.Appointment, error) {
	if phone == "" {
		return model.Appointment{}, validationf("telefone é obrigatório")
	}

	from := now
	var until *time.Time
	if day != nil {
		dayStart, dayEnd := m.cal.DayBounds(*day)
		if !dayEnd.After(now) {
			return model.Appointment{}, validationf("essa data já passou")
		}
		if dayStart.After(from) {
			from = dayStart
		}
		until = &dayEnd
	}

	appt, err := m.store.CancelEarliestConfirmed(ctx, phone, from, until)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, &NotFoundError{Msg: "você não tem agendamentos futuros"}
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// Reschedule moves the customer's next upcoming appointment to newStart,
// keeping its duration. The change is a single in-place update: the old slot
// is only released if the move commits.
func (m *Manager) Reschedule(ctx context.Context, phone string, newStart, now time.Time) (model.Appointment, error) {
	if phone == "" {
		return model.Appointment{}, validationf("telefone é obrigatório")
	}

	current, err := m.store.FindEarliestConfirmed(ctx, phone, now)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, &NotFoundError{Msg: "você não tem agendamentos futuros"}
		}
		return model.Appointment{}, err
	}

	start := newStart.In(m.cal.Location())
	end := start.Add(current.EndsAt.Sub(current.StartsAt))
	if err := m.validateWindow(ctx, start, end, now, current.ID); err != nil {
		return model.Appointment{}, err
	}

	appt, err := m.store.RescheduleEarliestConfirmed(ctx, phone, now, start, end)
	if err != nil {
		switch {
		case storage.IsConflict(err):
			return model.Appointment{}, &ConflictError{}
		case storage.IsNotFound(err):
			return model.Appointment{}, &NotFoundError{Msg: "você não tem agendamentos futuros"}
		}
		return model.Appointment{}, err
	}
	return appt, nil
}

// ListUpcoming returns the customer's upcoming confirmed appointments.
func (m *Manager) ListUpcoming(ctx context.Context, phone string, now time.Time) ([]model.Appointment, error) {
	if phone == "" {
		return nil, validationf("telefone é obrigatório")
	}
	return m.store.ListUpcomingByPhone(ctx, phone, now)
}

// CreateBlock reserves owner time. Unless force is set, a block that would
// cover confirmed appointments is rejected so the owner sees what is in the
// way before overriding.
func (m *Manager) CreateBlock(ctx context.Context, blk *model.Block, force bool) error {
	if blk.Title == "" {
		return validationf("título é obrigatório")
	}
	if !blk.EndsAt.After(blk.StartsAt) {
		return validationf("o fim do bloqueio deve ser depois do início")
	}

	if !force {
		appts, err := m.store.ListConfirmedBetween(ctx, blk.StartsAt, blk.EndsAt)
		if err != nil {
			return err
		}
		if len(appts) > 0 {
			first := appts[0]
			return &ConflictError{
				CustomerName: first.CustomerName,
				At:           first.StartsAt.In(m.cal.Location()).Format("15:04"),
			}
		}
	}
	return m.store.CreateBlock(ctx, blk)
}

// validateWindow checks a half-open candidate window against the business
// calendar and existing occupancy. excludeID skips one appointment in the
// overlap pre-check (the one being rescheduled).
func (m *Manager) validateWindow(ctx context.Context, start, end, now time.Time, excludeID string) error {
	if !start.After(now) {
		return validationf("não é possível agendar no passado")
	}

	override, err := m.store.OverrideFor(ctx, m.cal.DateKey(start))
	if err != nil {
		return err
	}
	if !m.cal.IsOpen(start, override) {
		return validationf("estamos fechados neste dia")
	}
	if start.Before(m.cal.OpenAt(start)) || start.Hour() >= m.cal.CloseHour() {
		return validationf("fora do horário de atendimento (%02dh às %02dh)", m.cal.OpenHour(), m.cal.CloseHour())
	}
	lunchStart, lunchEnd := m.cal.LunchWindow(start)
	if start.Before(lunchEnd) && end.After(lunchStart) {
		return validationf("esse horário cai no intervalo de almoço")
	}

	appts, err := m.store.ListConfirmedBetween(ctx, start, end)
	if err != nil {
		return err
	}
	for _, appt := range appts {
		if appt.ID == excludeID {
			continue
		}
		return &ConflictError{
			CustomerName: appt.CustomerName,
			At:           appt.StartsAt.In(m.cal.Location()).Format("15:04"),
		}
	}

	blk, err := m.store.FindBlockOverlapping(ctx, start, end)
	if err == nil {
		return &ConflictError{BlockTitle: blk.Title}
	}
	if !storage.IsNotFound(err) {
		return err
	}
	return nil
}
