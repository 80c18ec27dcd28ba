package replicate

import (
	"context"
	"net/http"
)

type Webhooks struct {
	client *Client
}

type WebhookSecret struct {
	Key string `json:"key"`
}

// DefaultSecret returns the signing secret for webhooks sent to this
// account. Pass Key to webhook.Verify.
func (w *Webhooks) DefaultSecret(ctx context.Context) (*WebhookSecret, error) {
	secret := &WebhookSecret{}
	if err := w.client.do(ctx, "webhooks.default_secret", http.MethodGet, "/webhooks/default/secret", nil, secret); err != nil {
		return nil, err
	}
	return secret, nil
}
