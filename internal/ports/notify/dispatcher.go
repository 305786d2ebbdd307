package notify

import (
	"context"
	"errors"
)

// Urgency distingue la alerta normal del recordatorio de las re-alertas
// más intensas de los niveles de escalamiento.
type Urgency string

const (
	UrgencyNormal Urgency = "normal"
	UrgencyUrgent Urgency = "urgent"
)

// Alert es la alerta local que el host (UI) convierte en sonido/vibración/TTS.
type Alert struct {
	MedicationID   string
	MedicationName string
	Urgency        Urgency
	Speech         string // texto a locutar
}

// Dispatcher ejecuta las acciones concretas de cada nivel de escalamiento.
// Las fallas se reportan por error pero nunca frenan al controlador: el
// siguiente nivel corre en su propio timer igual.
type Dispatcher interface {
	PlayAlert(ctx context.Context, a Alert) error
	SendMessage(ctx context.Context, contact Contact, text string) error
	PlaceCall(ctx context.Context, contact Contact) error
}

var ErrNoContact = errors.New("no emergency contact configured")

// Contact es el contacto de emergencia, resuelto fuera del núcleo.
type Contact struct {
	Name  string
	Phone string
}

// ContactResolver obtiene el contacto de emergencia configurado.
// Devuelve ErrNoContact si no hay ninguno.
type ContactResolver interface {
	EmergencyContact(ctx context.Context) (Contact, error)
}
