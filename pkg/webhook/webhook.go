// Package webhook defines webhook event names and verifies signed
// webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Event names a point in a prediction's lifecycle that can trigger a
// webhook delivery.
type Event string

const (
	EventStart     Event = "start"
	EventOutput    Event = "output"
	EventLogs      Event = "logs"
	EventCompleted Event = "completed"
)

// ParseEvent returns the Event named s.
func ParseEvent(s string) (Event, error) {
	e := Event(s)
	if !slices.Contains([]Event{EventStart, EventOutput, EventLogs, EventCompleted}, e) {
		return "", fmt.Errorf("unknown webhook event: %s", s)
	}
	return e, nil
}

const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1"

	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingHeaders   = errors.New("missing webhook headers")
	ErrInvalidTimestamp = errors.New("invalid webhook timestamp")
	ErrTimestampSkew    = errors.New("webhook timestamp outside tolerance")
	ErrNoMatch          = errors.New("no matching webhook signature")
)

// Verifier checks webhook signatures against a signing secret.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier accepts the secret as returned by the API, with or without
// the whsec_ prefix.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid webhook secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Sign returns the v1 signature for a delivery.
func (v *Verifier) Sign(id string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, v.key)
	fmt.Fprintf(mac, "%s.%d.", id, ts.Unix())
	mac.Write(body)
	return signatureVersion + "," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify checks the signature headers of a delivery against body.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	id := header.Get(HeaderID)
	tsStr := header.Get(HeaderTimestamp)
	sigs := header.Get(HeaderSignature)
	if id == "" || tsStr == "" || sigs == "" {
		return ErrMissingHeaders
	}

	secs, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTimestamp, tsStr)
	}
	ts := time.Unix(secs, 0)
	if d := v.now().Sub(ts); d > v.tolerance || d < -v.tolerance {
		return ErrTimestampSkew
	}

	_, want, _ := strings.Cut(v.Sign(id, ts, body), ",")
	for _, sig := range strings.Fields(sigs) {
		version, got, ok := strings.Cut(sig, ",")
		if !ok || version != signatureVersion {
			continue
		}
		if hmac.Equal([]byte(got), []byte(want)) {
			return nil
		}
	}
	return ErrNoMatch
}

// Filter reports whether event should be delivered under allowed. An empty
// filter allows every event.
func Filter(event Event, allowed []Event) bool {
	return len(allowed) == 0 || slices.Contains(allowed, event)
}
