package contacts

import (
	"context"
	"strings"

	"medicare-reminders/internal/ports/notify"
)

// StaticResolver resuelve el contacto de emergencia desde la configuración
// del entorno. Un despliegue atiende a un paciente con un contacto fijo.
type StaticResolver struct {
	contact notify.Contact
}

func NewStatic(name, phone string) *StaticResolver {
	return &StaticResolver{contact: notify.Contact{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
	}}
}

func (r *StaticResolver) EmergencyContact(ctx context.Context) (notify.Contact, error) {
	if r.contact.Phone == "" && r.contact.Name == "" {
		return notify.Contact{}, notify.ErrNoContact
	}
	return r.contact, nil
}
