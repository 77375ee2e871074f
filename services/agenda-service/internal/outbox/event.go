package outbox

import (
	"encoding/json"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

// Topic names double as event types. The Kafka topic equals EventType
// (event-per-topic).
const (
	EventAppointmentBooked      = "agenda.appointment.booked.v1"
	EventAppointmentCancelled   = "agenda.appointment.cancelled.v1"
	EventAppointmentRescheduled = "agenda.appointment.rescheduled.v1"
	EventReminderDue            = "agenda.reminder.due.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type appointmentPayload struct {
	AppointmentID string    `json:"appointment_id"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerName  string    `json:"customer_name"`
	ServiceIDs    []string  `json:"service_ids"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
}

func appointmentEvent(eventType string, appt model.Appointment) Event {
	payload, _ := json.Marshal(appointmentPayload{
		AppointmentID: appt.ID,
		CustomerPhone: appt.CustomerPhone,
		CustomerName:  appt.CustomerName,
		ServiceIDs:    appt.ServiceIDs,
		StartsAt:      appt.StartsAt,
		EndsAt:        appt.EndsAt,
	})
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}
}

func AppointmentBooked(appt model.Appointment) Event {
	return appointmentEvent(EventAppointmentBooked, appt)
}

func AppointmentCancelled(appt model.Appointment) Event {
	return appointmentEvent(EventAppointmentCancelled, appt)
}

func AppointmentRescheduled(appt model.Appointment) Event {
	return appointmentEvent(EventAppointmentRescheduled, appt)
}

// ReminderPayload is consumed by notify-service to compose the reminder
// message.
type ReminderPayload struct {
	AppointmentID string    `json:"appointment_id"`
	CustomerPhone string    `json:"customer_phone"`
	CustomerName  string    `json:"customer_name"`
	ServiceIDs    []string  `json:"service_ids"`
	StartsAt      time.Time `json:"starts_at"`
}

func ReminderDue(appt model.Appointment) Event {
	payload, _ := json.Marshal(ReminderPayload{
		AppointmentID: appt.ID,
		CustomerPhone: appt.CustomerPhone,
		CustomerName:  appt.CustomerName,
		ServiceIDs:    appt.ServiceIDs,
		StartsAt:      appt.StartsAt,
	})
	return Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventReminderDue,
		Payload:       payload,
	}
}
