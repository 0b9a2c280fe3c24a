// Package notify implementa el sink de notificaciones de negocio.
package notify

import (
	"github.com/rs/zerolog/log"

	"github.com/alunashop/tienda/internal/domain"
)

// Log escribe cada notificación en el log estructurado.
type Log struct{}

func (Log) Notify(kind domain.NotifyKind, title, message string) {
	ev := log.Info()
	switch kind {
	case domain.NotifyWarning:
		ev = log.Warn()
	case domain.NotifyError:
		ev = log.Error()
	}
	ev.Str("kind", string(kind)).Str("title", title).Msg(message)
}

type Notice struct {
	Kind    domain.NotifyKind `json:"kind"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
}

// Collector junta las notificaciones de un request para devolverlas en la
// respuesta JSON como `notices`.
type Collector struct {
	Notices []Notice
}

func (c *Collector) Notify(kind domain.NotifyKind, title, message string) {
	c.Notices = append(c.Notices, Notice{Kind: kind, Title: title, Message: message})
}

type tee []domain.Notifier

func (t tee) Notify(kind domain.NotifyKind, title, message string) {
	for _, n := range t {
		n.Notify(kind, title, message)
	}
}

// Tee reparte cada notificación a todos los sinks.
func Tee(sinks ...domain.Notifier) domain.Notifier {
	return tee(sinks)
}
