package replicate

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/replicate/replicate-client/pkg/webhook"
)

type Trainings struct {
	client *Client
}

type TrainingOptions struct {
	// Destination is the "owner/name" model that receives the trained version
	Destination         string
	Input               map[string]any
	Webhook             string
	WebhookEventsFilter []webhook.Event
}

type createTrainingRequest struct {
	Destination         string          `json:"destination"`
	Input               map[string]any  `json:"input"`
	Webhook             string          `json:"webhook,omitempty"`
	WebhookEventsFilter []webhook.Event `json:"webhook_events_filter,omitempty"`
}

func (t *Trainings) Create(ctx context.Context, owner, name, versionID string, opts TrainingOptions) (*Training, error) {
	input := opts.Input
	if input == nil {
		input = map[string]any{}
	}
	req := createTrainingRequest{
		Destination:         opts.Destination,
		Input:               input,
		Webhook:             opts.Webhook,
		WebhookEventsFilter: opts.WebhookEventsFilter,
	}
	training := &Training{}
	path := modelPath(owner, name) + "/versions/" + url.PathEscape(versionID) + "/trainings"
	if err := t.client.do(ctx, "trainings.create", http.MethodPost, path, req, training); err != nil {
		return nil, err
	}
	return training, nil
}

func (t *Trainings) Get(ctx context.Context, id string) (*Training, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	training := &Training{}
	if err := t.client.do(ctx, "trainings.get", http.MethodGet, "/trainings/"+url.PathEscape(id), nil, training); err != nil {
		return nil, err
	}
	return training, nil
}

func (t *Trainings) List(ctx context.Context) (*Page[Training], error) {
	page := &Page[Training]{}
	if err := t.client.do(ctx, "trainings.list", http.MethodGet, "/trainings", nil, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (t *Trainings) Cancel(ctx context.Context, id string) (*Training, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	training := &Training{}
	path := "/trainings/" + url.PathEscape(id) + "/cancel"
	if err := t.client.do(ctx, "trainings.cancel", http.MethodPost, path, nil, training); err != nil {
		return nil, err
	}
	return training, nil
}

// Wait blocks until the training reaches a terminal status.
func (t *Trainings) Wait(ctx context.Context, id string, opts ...WaitOption) (*Training, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return poll(ctx, func(ctx context.Context) (*Training, error) {
		return t.Get(ctx, id)
	}, func(tr *Training) Status {
		return tr.Status
	}, newWaitConfig(opts), t.client.logger.With(zap.String("training_id", id)))
}
