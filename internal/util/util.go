package util //nolint:revive // small shared helpers for the client and binaries

import (
	"embed"
	"encoding/base32"
	"net/http"
	"strings"
	"time"

	"github.com/replicate/go/httpclient"
	"github.com/replicate/go/uuid"
)

// Wildcard match in case version.txt is not generated yet
//
//go:embed *
var embedFS embed.FS

func Version() string {
	bs, err := embedFS.ReadFile("version.txt")
	if err != nil {
		return "0.0.0+unknown"
	}
	return strings.TrimSpace(string(bs))
}

// HTTPClientWithRetry is for fetching output files, never for API calls.
func HTTPClientWithRetry() *http.Client {
	return httpclient.ApplyRetryPolicy(&http.Client{})
}

// ParseTime parses the API's RFC 3339 timestamps. Empty input yields the
// zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// Elapsed returns completed minus started, or zero if either is missing
// or malformed.
func Elapsed(started, completed string) time.Duration {
	s, err := ParseTime(started)
	if err != nil || s.IsZero() {
		return 0
	}
	c, err := ParseTime(completed)
	if err != nil || c.IsZero() {
		return 0
	}
	return c.Sub(s)
}

var idEncoding = base32.NewEncoding("0123456789abcdefghjkmnpqrstvwxyz").WithPadding(base32.NoPadding)

// DeliveryID returns a time-ordered webhook delivery ID. The UUIDv7 bytes
// are interleaved so that IDs created close together do not share a
// prefix.
func DeliveryID() (string, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	shuffle := make([]byte, uuid.Size)
	for i := 0; i < 4; i++ {
		shuffle[i], shuffle[i+4], shuffle[i+8], shuffle[i+12] = u[i+12], u[i+4], u[i], u[i+8]
	}
	return "msg_" + idEncoding.EncodeToString(shuffle), nil
}
