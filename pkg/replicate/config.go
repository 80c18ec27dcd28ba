package replicate

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"unicode"

	"github.com/replicate/replicate-client/internal/util"
)

const (
	DefaultBaseURL = "https://api.replicate.com/v1"

	TokenEnv   = "REPLICATE_API_TOKEN"
	BaseURLEnv = "REPLICATE_BASE_URL"
)

// Config holds the credentials and endpoint used by a Client.
// It is not modified after the Client is constructed.
type Config struct {
	// Token is sent as a bearer token on every request
	Token string
	// BaseURL defaults to DefaultBaseURL
	BaseURL string
	// UserAgent defaults to replicate-go/<version>
	UserAgent string
}

// ConfigFromEnv builds a Config from REPLICATE_API_TOKEN and the optional
// REPLICATE_BASE_URL.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Token:   os.Getenv(TokenEnv),
		BaseURL: os.Getenv(BaseURLEnv),
	}
	if cfg.Token == "" {
		return cfg, &ConfigError{Field: "token", Err: fmt.Errorf("%w: %s is not set", ErrMissingToken, TokenEnv)}
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.UserAgent == "" {
		c.UserAgent = "replicate-go/" + util.Version()
	}
	return c
}

// Validate reports whether the Config can be used to issue requests.
func (c Config) Validate() error {
	if c.Token == "" {
		return &ConfigError{Field: "token", Err: ErrMissingToken}
	}
	if strings.IndexFunc(c.Token, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return &ConfigError{Field: "token", Err: ErrInvalidToken}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return &ConfigError{Field: "base_url", Err: fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "base_url", Err: fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.BaseURL)}
	}
	return nil
}
