package callgw

import (
	"context"
	"net/http"

	"medicare-reminders/internal/platform/httpclient"
	"medicare-reminders/internal/ports/notify"
)

// Caller dispara llamadas automáticas vía un gateway de telefonía externo
// (nivel 4 de escalamiento).
type Caller struct {
	http *httpclient.Client
}

func New(baseURL string) (*Caller, error) {
	c, err := httpclient.NewWithBaseURL(baseURL, httpclient.DefaultTimeout)
	if err != nil {
		return nil, err
	}
	return &Caller{http: c}, nil
}

// NewWithClient permite inyectar el client (tests).
func NewWithClient(c *httpclient.Client) *Caller {
	return &Caller{http: c}
}

type callRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name,omitempty"`
}

type callResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

func (c *Caller) PlaceCall(ctx context.Context, contact notify.Contact) error {
	var out callResponse
	return c.http.DoJSON(ctx, http.MethodPost, "/calls", nil, callRequest{
		Phone: contact.Phone,
		Name:  contact.Name,
	}, &out)
}
