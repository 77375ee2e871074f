package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/espacoca/agenda/services/agenda-service/internal/model"
)

func TestReminderDueCarriesServices(t *testing.T) {
	start := time.Date(2026, 2, 3, 9, 0, 0, 0, time.FixedZone("-03", -3*60*60))
	evt := ReminderDue(model.Appointment{
		ID:            "a1",
		CustomerPhone: "5511999990000",
		CustomerName:  "Maria",
		ServiceIDs:    []string{"fibra", "remocao"},
		StartsAt:      start,
	})

	if evt.EventType != EventReminderDue || evt.AggregateID != "a1" {
		t.Fatalf("envelope: %+v", evt)
	}
	var payload ReminderPayload
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.ServiceIDs) != 2 || payload.ServiceIDs[0] != "fibra" {
		t.Fatalf("service ids %v", payload.ServiceIDs)
	}
	if !payload.StartsAt.Equal(start) {
		t.Fatalf("starts_at %v", payload.StartsAt)
	}
}
