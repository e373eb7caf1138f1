package instance

import (
	"os"
	"strings"
)

// EnvVar overrides the detected instance identifier.
const EnvVar = "BIZHUB_INSTANCE_ID"

// ID returns the process instance identifier: the env override, then the
// hostname, then "local".
func ID() string {
	if id := strings.TrimSpace(os.Getenv(EnvVar)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
