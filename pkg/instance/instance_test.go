package instance

import (
	"os"
	"testing"
)

func TestIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvVar, " worker-7 ")
	if got := ID(); got != "worker-7" {
		t.Fatalf("expected worker-7, got %q", got)
	}
}

func TestIDFallsBackToHostname(t *testing.T) {
	t.Setenv(EnvVar, "")
	host, err := os.Hostname()
	if err != nil || host == "" {
		t.Skip("hostname unavailable")
	}
	if got := ID(); got != host {
		t.Fatalf("expected %q, got %q", host, got)
	}
}
