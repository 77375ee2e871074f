package message

import (
	"fmt"
	"strings"
	"time"
)

var weekdays = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

var months = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// LongDate formats t as a long pt-BR date, e.g. "terça-feira, 3 de fevereiro".
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1])
}

// Reminder builds the WhatsApp reminder text sent the day before an
// appointment.
func Reminder(customerName string, services []string, startsAt time.Time) string {
	name := strings.TrimSpace(customerName)
	if name == "" {
		name = "tudo bem"
	}
	serviceLine := strings.Join(services, " + ")

	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s! Passando para lembrar do seu agendamento:\n\n", name)
	fmt.Fprintf(&b, "📅 %s\n", LongDate(startsAt))
	fmt.Fprintf(&b, "🕐 %s\n", startsAt.Format("15:04"))
	if serviceLine != "" {
		fmt.Fprintf(&b, "💅 %s\n", serviceLine)
	}
	b.WriteString("\nPosso confirmar sua presença? Responda SIM para confirmar ou NÃO para cancelar.")
	return b.String()
}
