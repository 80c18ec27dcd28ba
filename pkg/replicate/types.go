package replicate

import (
	"bytes"
	"encoding/json"

	"github.com/replicate/replicate-client/pkg/webhook"
)

type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal reports whether no further transitions can occur.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// IsValid reports whether s is one of the statuses the API defines.
func (s Status) IsValid() bool {
	switch s {
	case StatusStarting, StatusProcessing, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

type Source string

const (
	SourceAPI Source = "api"
	SourceWeb Source = "web"
)

type PredictionURLs struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel"`
	Stream string `json:"stream,omitempty"`
}

type Prediction struct {
	ID                  string          `json:"id"`
	Model               string          `json:"model,omitempty"`
	Version             string          `json:"version"`
	Status              Status          `json:"status"`
	Input               map[string]any  `json:"input,omitempty"`
	Output              any             `json:"output,omitempty"`
	Logs                string          `json:"logs,omitempty"`
	Error               string          `json:"error,omitempty"`
	Metrics             map[string]any  `json:"metrics,omitempty"`
	URLs                PredictionURLs  `json:"urls"`
	Source              Source          `json:"source,omitempty"`
	Webhook             string          `json:"webhook,omitempty"`
	WebhookEventsFilter []webhook.Event `json:"webhook_events_filter,omitempty"`
	CreatedAt           string          `json:"created_at"`
	StartedAt           string          `json:"started_at,omitempty"`
	CompletedAt         string          `json:"completed_at,omitempty"`
}

type Training struct {
	ID          string         `json:"id"`
	Model       string         `json:"model,omitempty"`
	Version     string         `json:"version"`
	Destination string         `json:"destination,omitempty"`
	Status      Status         `json:"status"`
	Input       map[string]any `json:"input,omitempty"`
	Output      any            `json:"output,omitempty"`
	Logs        string         `json:"logs,omitempty"`
	Error       string         `json:"error,omitempty"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	URLs        PredictionURLs `json:"urls"`
	Source      Source         `json:"source,omitempty"`
	Webhook     string         `json:"webhook,omitempty"`
	CreatedAt   string         `json:"created_at"`
	StartedAt   string         `json:"started_at,omitempty"`
	CompletedAt string         `json:"completed_at,omitempty"`
}

type Model struct {
	URL            string        `json:"url"`
	Owner          string        `json:"owner"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	Visibility     string        `json:"visibility"`
	GithubURL      string        `json:"github_url,omitempty"`
	PaperURL       string        `json:"paper_url,omitempty"`
	LicenseURL     string        `json:"license_url,omitempty"`
	RunCount       int           `json:"run_count"`
	CoverImageURL  string        `json:"cover_image_url,omitempty"`
	DefaultExample *Prediction   `json:"default_example,omitempty"`
	LatestVersion  *ModelVersion `json:"latest_version,omitempty"`
}

// UnmarshalJSON treats an empty object for default_example or
// latest_version the same as null
func (m *Model) UnmarshalJSON(data []byte) error {
	type model Model
	aux := &struct {
		*model
		DefaultExample json.RawMessage `json:"default_example,omitempty"`
		LatestVersion  json.RawMessage `json:"latest_version,omitempty"`
	}{model: (*model)(m)}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	m.DefaultExample = nil
	if !isEmptyObject(aux.DefaultExample) {
		m.DefaultExample = &Prediction{}
		if err := json.Unmarshal(aux.DefaultExample, m.DefaultExample); err != nil {
			return err
		}
	}
	m.LatestVersion = nil
	if !isEmptyObject(aux.LatestVersion) {
		m.LatestVersion = &ModelVersion{}
		if err := json.Unmarshal(aux.LatestVersion, m.LatestVersion); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return false
	}
	return len(obj) == 0
}

type ModelVersion struct {
	ID            string         `json:"id"`
	CreatedAt     string         `json:"created_at"`
	CogVersion    string         `json:"cog_version"`
	OpenAPISchema map[string]any `json:"openapi_schema"`
}

type Collection struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Models      []Model `json:"models,omitempty"`
}

// Page is one page of a cursor-paginated list endpoint.
type Page[T any] struct {
	Previous *string `json:"previous,omitempty"`
	Next     *string `json:"next,omitempty"`
	Results  []T     `json:"results"`
}
