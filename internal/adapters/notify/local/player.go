package local

import (
	"context"

	"medicare-reminders/internal/platform/logger"
	"medicare-reminders/internal/ports/notify"
)

// Player es la salida local de alertas. En el servidor no hay parlante: la
// alerta se loguea estructurada y queda disponible para que un front la
// convierta en sonido/vibración/TTS.
type Player struct {
	log logger.Logger
}

func NewPlayer(log logger.Logger) *Player {
	return &Player{log: log}
}

func (p *Player) PlayAlert(ctx context.Context, a notify.Alert) error {
	p.log.Info("alert", map[string]any{
		"medication_id": a.MedicationID,
		"medication":    a.MedicationName,
		"urgency":       string(a.Urgency),
		"speech":        a.Speech,
	})
	return nil
}
