package model

import "time"

// Appointment status values. CONFIRMED -> CANCELLED is the only transition;
// CANCELLED is terminal. Appointments are never hard-deleted.
const (
	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

type Appointment struct {
	ID            string
	CustomerPhone string
	CustomerName  string
	ServiceIDs    []string
	StartsAt      time.Time
	EndsAt        time.Time
	Status        string
	Notes         string
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

// Block is an administrator-imposed unavailable interval, unrelated to any
// customer booking.
type Block struct {
	ID        string
	Title     string
	StartsAt  time.Time
	EndsAt    time.Time
	CreatedAt time.Time
}

// ScheduleOverride is a per-date exception to the weekly open/closed pattern.
// Date is a business-local civil date (YYYY-MM-DD); at most one per date.
type ScheduleOverride struct {
	Date   string
	IsOpen bool
	Reason string
}

type Customer struct {
	Phone     string
	Name      string
	CreatedAt time.Time
}

type Service struct {
	ID           string
	Name         string
	DurationMins int
	Price        float64
}
