package replicate

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"

	"github.com/replicate/replicate-client/pkg/webhook"
)

type Predictions struct {
	client *Client
}

type CreatePredictionOptions struct {
	Webhook             string
	WebhookEventsFilter []webhook.Event
	// Stream requests a server-sent events URL in Prediction.URLs.Stream
	Stream bool
}

type createPredictionRequest struct {
	Version             string          `json:"version,omitempty"`
	Input               map[string]any  `json:"input"`
	Webhook             string          `json:"webhook,omitempty"`
	WebhookEventsFilter []webhook.Event `json:"webhook_events_filter,omitempty"`
	Stream              bool            `json:"stream,omitempty"`
}

// Create starts a prediction. version is "owner/name:id", a bare version
// ID, or "owner/name" to run the model's latest version.
func (p *Predictions) Create(ctx context.Context, version string, input map[string]any, opts *CreatePredictionOptions) (*Prediction, error) {
	ref, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}
	if input == nil {
		input = map[string]any{}
	}
	req := createPredictionRequest{Input: input}
	if opts != nil {
		req.Webhook = opts.Webhook
		req.WebhookEventsFilter = opts.WebhookEventsFilter
		req.Stream = opts.Stream
	}

	path := "/predictions"
	if ref.IsModel() {
		path = fmt.Sprintf("/models/%s/%s/predictions", url.PathEscape(ref.Owner), url.PathEscape(ref.Name))
	} else {
		req.Version = ref.ID
	}

	prediction := &Prediction{}
	if err := p.client.do(ctx, "predictions.create", http.MethodPost, path, req, prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

func (p *Predictions) Get(ctx context.Context, id string) (*Prediction, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	prediction := &Prediction{}
	path := "/predictions/" + url.PathEscape(id)
	if err := p.client.do(ctx, "predictions.get", http.MethodGet, path, nil, prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

// List returns the first page of predictions, newest first.
func (p *Predictions) List(ctx context.Context) (*Page[Prediction], error) {
	page := &Page[Prediction]{}
	if err := p.client.do(ctx, "predictions.list", http.MethodGet, "/predictions", nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

// Pages yields every page of predictions, following next cursors. Iteration
// stops at the first error.
func (p *Predictions) Pages(ctx context.Context) iter.Seq2[*Page[Prediction], error] {
	return func(yield func(*Page[Prediction], error) bool) {
		page, err := p.List(ctx)
		for {
			if err != nil {
				yield(nil, err)
				return
			}
			if page == nil || !yield(page, nil) {
				return
			}
			page, err = NextPage(ctx, p.client, page)
		}
	}
}

// Cancel requests cancellation and returns the prediction as the server
// reports it afterwards. The status may not be canceled yet.
func (p *Predictions) Cancel(ctx context.Context, id string) (*Prediction, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	prediction := &Prediction{}
	path := "/predictions/" + url.PathEscape(id) + "/cancel"
	if err := p.client.do(ctx, "predictions.cancel", http.MethodPost, path, nil, prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

// Wait blocks until the prediction reaches a terminal status.
func (p *Predictions) Wait(ctx context.Context, id string, opts ...WaitOption) (*Prediction, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return poll(ctx, func(ctx context.Context) (*Prediction, error) {
		return p.Get(ctx, id)
	}, func(pr *Prediction) Status {
		return pr.Status
	}, newWaitConfig(opts), p.client.logger.With(zapPredictionID(id)))
}

// Run creates a prediction and waits for it to finish.
func (c *Client) Run(ctx context.Context, version string, input map[string]any, opts *CreatePredictionOptions, waitOpts ...WaitOption) (*Prediction, error) {
	prediction, err := c.Predictions.Create(ctx, version, input, opts)
	if err != nil {
		return nil, err
	}
	return c.Predictions.Wait(ctx, prediction.ID, waitOpts...)
}
