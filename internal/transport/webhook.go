package transport

import (
	"context"

	"github.com/agentstation/mastermap"
	"github.com/agentstation/mastermap/pkg/logging"
)

var _ mastermap.Pauser = (*Webhook)(nil)

// Webhook pauses the surrounding workflow by posting the pause request to
// an HTTP endpoint, e.g. a flow orchestrator's suspend hook.
type Webhook struct {
	client *Client
	url    string
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, client *Client) *Webhook {
	if client == nil {
		client = New(nil, "")
	}
	return &Webhook{client: client, url: url}
}

// Pause implements mastermap.Pauser.
func (w *Webhook) Pause(ctx context.Context, req mastermap.PauseRequest) error {
	logging.FromContext(ctx).Debug().
		Str("url", w.url).
		Str("report", req.ReportKey).
		Int("issues", req.Summary.Total).
		Msg("requesting workflow pause")
	return w.client.PostJSON(ctx, w.url, req)
}
