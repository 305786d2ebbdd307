package multi

import (
	"context"
	"errors"

	"medicare-reminders/internal/ports/notify"
)

// Interfaces por canal: cada adapter concreto implementa solo el suyo.
type (
	AlertPlayer interface {
		PlayAlert(ctx context.Context, a notify.Alert) error
	}
	MessageSender interface {
		SendMessage(ctx context.Context, contact notify.Contact, text string) error
	}
	CallPlacer interface {
		PlaceCall(ctx context.Context, contact notify.Contact) error
	}
)

// Dispatcher compone los tres canales en un notify.Dispatcher. Un canal nil
// (no configurado en el entorno) devuelve error al usarse; el que llama ya
// loguea las fallas de despacho sin frenar el escalamiento.
type Dispatcher struct {
	Alerts   AlertPlayer
	Messages MessageSender
	Calls    CallPlacer
}

var _ notify.Dispatcher = (*Dispatcher)(nil)

func (d *Dispatcher) PlayAlert(ctx context.Context, a notify.Alert) error {
	if d.Alerts == nil {
		return errors.New("alert channel not configured")
	}
	return d.Alerts.PlayAlert(ctx, a)
}

func (d *Dispatcher) SendMessage(ctx context.Context, contact notify.Contact, text string) error {
	if d.Messages == nil {
		return errors.New("message channel not configured")
	}
	return d.Messages.SendMessage(ctx, contact, text)
}

func (d *Dispatcher) PlaceCall(ctx context.Context, contact notify.Contact) error {
	if d.Calls == nil {
		return errors.New("call channel not configured")
	}
	return d.Calls.PlaceCall(ctx, contact)
}
