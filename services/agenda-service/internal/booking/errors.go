package booking

import "fmt"

// ValidationError is a rejected request: malformed input or a time the
// business rules never allow. The message is user-facing (pt-BR).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError is a time collision with existing occupancy. When the
// colliding row is known (pre-check path) the message names it; when the
// database exclusion constraint fires (lost race) only a generic message is
// possible.
type ConflictError struct {
	CustomerName string
	BlockTitle   string
	At           string // business-local HH:MM, empty on the race path
}

func (e *ConflictError) Error() string {
	switch {
	case e.BlockTitle != "":
		return fmt.Sprintf("conflito de horário: agenda bloqueada (%s)", e.BlockTitle)
	case e.CustomerName != "" && e.At != "":
		return fmt.Sprintf("conflito de horário: já existe agendamento de %s às %s", e.CustomerName, e.At)
	default:
		return "conflito de horário: este horário acabou de ser reservado"
	}
}

type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }
