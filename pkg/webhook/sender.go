package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/replicate/replicate-client/internal/util"
)

// Sender delivers signed webhook payloads, the way the API does. It is
// used to replay deliveries against a local receiver.
type Sender struct {
	logger   *zap.Logger
	client   *http.Client
	verifier *Verifier
	now      func() time.Time
}

// NewSender signs with verifier when it is non-nil and sends unsigned
// deliveries otherwise. Failed sends are retried.
func NewSender(verifier *Verifier, logger *zap.Logger) *Sender {
	return &Sender{
		logger:   logger.Named("webhook"),
		client:   util.HTTPClientWithRetry(),
		verifier: verifier,
		now:      time.Now,
	}
}

// Send posts payload to url with id as the delivery ID.
func (s *Sender) Send(ctx context.Context, url, id string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.verifier != nil {
		ts := s.now()
		req.Header.Set(HeaderID, id)
		req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts.Unix(), 10))
		req.Header.Set(HeaderSignature, s.verifier.Sign(id, ts, body))
	}

	log := s.logger.Sugar()
	log.Debugw("sending webhook", "url", url, "id", id, "signed", s.verifier != nil)
	resp, err := s.client.Do(req)
	if err != nil {
		log.Errorw("failed to send webhook", "url", url, "id", id, "error", err)
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// SendEvent sends payload only when event passes the allowed filter. A
// filtered-out event is not an error.
func (s *Sender) SendEvent(ctx context.Context, url, id string, event Event, allowed []Event, payload any) error {
	if !Filter(event, allowed) {
		s.logger.Sugar().Debugw("skipping filtered webhook event", "url", url, "id", id, "event", event, "allowed", allowed)
		return nil
	}
	return s.Send(ctx, url, id, payload)
}
