package config

import (
	"fmt"
	"net"

	"curvefoundry/observability/logging"
)

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DataDir must be set")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	if c.MetricsAddress != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddress); err != nil {
			return fmt.Errorf("MetricsAddress: %w", err)
		}
	}
	return nil
}
