package config

import "time"

// Config holds all configuration for the webhook receiver service
type Config struct {
	// Server configuration
	Host string
	Port int

	// Verification configuration
	// An empty secret disables signature checks
	Secret    string
	Tolerance time.Duration

	// Maximum accepted request body size in bytes
	MaxBodyBytes int64

	// Grace period for in-flight requests on shutdown
	ShutdownTimeout time.Duration
}
