package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/espacoca/agenda/services/agenda-service/internal/availability"
	"github.com/espacoca/agenda/services/agenda-service/internal/booking"
	"github.com/espacoca/agenda/services/agenda-service/internal/calendar"
	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

var testLoc = time.FixedZone("-03", -3*60*60)

// Tuesday 2026-02-03.
func tue(h, m int) time.Time {
	return time.Date(2026, 2, 3, h, m, 0, 0, testLoc)
}

type fakeBackend struct {
	services     map[string]model.Service
	appointments []model.Appointment
	blocks       []model.Block
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		services: map[string]model.Service{
			"corte": {ID: "corte", Name: "Corte", DurationMins: 60, Price: 80},
		},
	}
}

func (f *fakeBackend) ServicesByIDs(ctx context.Context, ids []string) ([]model.Service, error) {
	var out []model.Service
	for _, id := range ids {
		if svc, ok := f.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeBackend) OverrideFor(ctx context.Context, date string) (*model.ScheduleOverride, error) {
	return nil, nil
}

func (f *fakeBackend) OverridesBetween(ctx context.Context, from, to time.Time) (map[string]model.ScheduleOverride, error) {
	return map[string]model.ScheduleOverride{}, nil
}

func (f *fakeBackend) ListConfirmedBetween(ctx context.Context, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, appt := range f.appointments {
		if appt.Status == model.StatusConfirmed && appt.StartsAt.Before(to) && appt.EndsAt.After(from) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeBackend) ConfirmedIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	appts, _ := f.ListConfirmedBetween(ctx, from, to)
	var out []availability.Interval
	for _, appt := range appts {
		out = append(out, availability.Interval{Start: appt.StartsAt, End: appt.EndsAt})
	}
	return out, nil
}

func (f *fakeBackend) BlockIntervals(ctx context.Context, from, to time.Time) ([]availability.Interval, error) {
	var out []availability.Interval
	for _, blk := range f.blocks {
		out = append(out, availability.Interval{Start: blk.StartsAt, End: blk.EndsAt})
	}
	return out, nil
}

func (f *fakeBackend) FindBlockOverlapping(ctx context.Context, start, end time.Time) (model.Block, error) {
	for _, blk := range f.blocks {
		if blk.StartsAt.Before(end) && blk.EndsAt.After(start) {
			return blk, nil
		}
	}
	return model.Block{}, pgx.ErrNoRows
}

func (f *fakeBackend) CreateConfirmed(ctx context.Context, appt *model.Appointment) error {
	appt.ID = "appt-1"
	appt.CreatedAt = time.Now()
	f.appointments = append(f.appointments, *appt)
	return nil
}

func (f *fakeBackend) CancelEarliestConfirmed(ctx context.Context, phone string, from time.Time, until *time.Time) (model.Appointment, error) {
	for i, appt := range f.appointments {
		if appt.CustomerPhone == phone && appt.Status == model.StatusConfirmed && !appt.StartsAt.Before(from) {
			f.appointments[i].Status = model.StatusCancelled
			return f.appointments[i], nil
		}
	}
	return model.Appointment{}, pgx.ErrNoRows
}

func (f *fakeBackend) earliestConfirmedIdx(phone string, now time.Time) int {
	best := -1
	for i, appt := range f.appointments {
		if appt.CustomerPhone != phone || appt.Status != model.StatusConfirmed || appt.StartsAt.Before(now) {
			continue
		}
		if best == -1 || appt.StartsAt.Before(f.appointments[best].StartsAt) {
			best = i
		}
	}
	return best
}

func (f *fakeBackend) RescheduleEarliestConfirmed(ctx context.Context, phone string, now, newStart, newEnd time.Time) (model.Appointment, error) {
	i := f.earliestConfirmedIdx(phone, now)
	if i == -1 {
		return model.Appointment{}, pgx.ErrNoRows
	}
	f.appointments[i].StartsAt = newStart
	f.appointments[i].EndsAt = newEnd
	return f.appointments[i], nil
}

func (f *fakeBackend) FindEarliestConfirmed(ctx context.Context, phone string, now time.Time) (model.Appointment, error) {
	i := f.earliestConfirmedIdx(phone, now)
	if i == -1 {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return f.appointments[i], nil
}

func (f *fakeBackend) ListUpcomingByPhone(ctx context.Context, phone string, now time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, appt := range f.appointments {
		if appt.CustomerPhone == phone && appt.Status == model.StatusConfirmed && !appt.StartsAt.Before(now) {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateBlock(ctx context.Context, blk *model.Block) error {
	blk.ID = "blk-1"
	f.blocks = append(f.blocks, *blk)
	return nil
}

func newToolsHandler(backend *fakeBackend, now time.Time) *ToolsHandler {
	cal := calendar.New()
	mgr := booking.NewManager(backend, cal)
	finder := availability.NewFinder(cal, backend)
	h := NewToolsHandler(mgr, finder, cal, slog.Default())
	h.now = func() time.Time { return now }
	return h
}

func TestToolDefinitions(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), tue(7, 0))
	rec := httptest.NewRecorder()
	h.Definitions(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Tools []toolDefinition `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]bool{
		"check_calendar":         true,
		"book_appointment":       true,
		"reschedule_appointment": true,
		"list_my_appointments":   true,
		"cancel_appointment":     true,
	}
	if len(resp.Tools) != len(want) {
		t.Fatalf("got %d tools", len(resp.Tools))
	}
	for _, def := range resp.Tools {
		if !want[def.Name] {
			t.Fatalf("unexpected tool %q", def.Name)
		}
	}
}

func TestCheckCalendarReturnsSlots(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), time.Date(2026, 2, 1, 10, 0, 0, 0, testLoc))
	body := strings.NewReader(`{"date":"2026-02-03","service_ids":["corte"]}`)
	rec := httptest.NewRecorder()
	h.CheckCalendar(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tools/check_calendar", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp slotResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != availability.MaxSlots {
		t.Fatalf("empty Tuesday should fill, got %d slots", len(resp.Slots))
	}
	if resp.Slots[0].Time != "07:00" {
		t.Fatalf("first slot %q", resp.Slots[0].Time)
	}
}

func TestCheckCalendarBadDate(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), tue(7, 0))
	rec := httptest.NewRecorder()
	h.CheckCalendar(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tools/check_calendar", strings.NewReader(`{"date":"03/02/2026"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestBookAppointmentRequiresPhoneHeader(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), tue(7, 0))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/book_appointment", strings.NewReader(`{}`))
	h.BookAppointment(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestBookAppointmentHappyPath(t *testing.T) {
	backend := newFakeBackend()
	h := newToolsHandler(backend, tue(7, 0))

	body := strings.NewReader(`{"name":"Maria","services":["corte"],"starts_at":"2026-02-03T09:00:00-03:00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/book_appointment", body)
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.BookAppointment(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AppointmentID == "" || resp.Status != model.StatusConfirmed {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Message, "03/02") || !strings.Contains(resp.Message, "09:00") {
		t.Fatalf("confirmation message should carry date and time: %q", resp.Message)
	}
}

func TestBookAppointmentConflictIs409(t *testing.T) {
	backend := newFakeBackend()
	backend.appointments = append(backend.appointments, model.Appointment{
		ID: "appt-0", CustomerPhone: "other", CustomerName: "João",
		StartsAt: tue(9, 0), EndsAt: tue(10, 0), Status: model.StatusConfirmed,
	})
	h := newToolsHandler(backend, tue(7, 0))

	body := strings.NewReader(`{"services":["corte"],"starts_at":"2026-02-03T09:30:00-03:00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/book_appointment", body)
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.BookAppointment(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "João") {
		t.Fatalf("conflict body should name the holder: %s", rec.Body.String())
	}
}

func TestRescheduleAppointmentKeepsDuration(t *testing.T) {
	backend := newFakeBackend()
	backend.appointments = append(backend.appointments, model.Appointment{
		ID: "appt-0", CustomerPhone: "5511999990000",
		StartsAt: tue(9, 0), EndsAt: tue(10, 0), Status: model.StatusConfirmed,
	})
	h := newToolsHandler(backend, tue(7, 0))

	body := strings.NewReader(`{"starts_at":"2026-02-03T14:00:00-03:00"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/reschedule_appointment", body)
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.RescheduleAppointment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !backend.appointments[0].StartsAt.Equal(tue(14, 0)) || !backend.appointments[0].EndsAt.Equal(tue(15, 0)) {
		t.Fatalf("appointment not moved: %v-%v", backend.appointments[0].StartsAt, backend.appointments[0].EndsAt)
	}
	if !strings.Contains(rec.Body.String(), "remarcado") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}

func TestRescheduleAppointmentNothingUpcoming(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), tue(7, 0))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/reschedule_appointment", strings.NewReader(`{"starts_at":"2026-02-03T14:00:00-03:00"}`))
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.RescheduleAppointment(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListMyAppointments(t *testing.T) {
	backend := newFakeBackend()
	backend.appointments = append(backend.appointments, model.Appointment{
		ID: "appt-0", CustomerPhone: "5511999990000",
		StartsAt: tue(9, 0), EndsAt: tue(10, 0), Status: model.StatusConfirmed,
	})
	h := newToolsHandler(backend, tue(7, 0))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/list_my_appointments", strings.NewReader(`{}`))
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.ListMyAppointments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp struct {
		Appointments []appointmentResponse `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Appointments) != 1 {
		t.Fatalf("got %d appointments", len(resp.Appointments))
	}
}

func TestCancelAppointmentNothingUpcoming(t *testing.T) {
	h := newToolsHandler(newFakeBackend(), tue(7, 0))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/cancel_appointment", strings.NewReader(`{}`))
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.CancelAppointment(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelAppointmentHappyPath(t *testing.T) {
	backend := newFakeBackend()
	backend.appointments = append(backend.appointments, model.Appointment{
		ID: "appt-0", CustomerPhone: "5511999990000",
		StartsAt: tue(9, 0), EndsAt: tue(10, 0), Status: model.StatusConfirmed,
	})
	h := newToolsHandler(backend, tue(7, 0))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tools/cancel_appointment", strings.NewReader(`{}`))
	req.Header.Set(customerPhoneHeader, "5511999990000")
	rec := httptest.NewRecorder()
	h.CancelAppointment(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if backend.appointments[0].Status != model.StatusCancelled {
		t.Fatal("appointment should be cancelled")
	}
}
