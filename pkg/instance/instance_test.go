package instance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(EnvInstanceID, "api-blue-7")
	assert.Equal(t, "api-blue-7", GetID("api"))
}

func TestGetIDFallsBackToHostname(t *testing.T) {
	t.Setenv(EnvInstanceID, "")
	restore := hostname
	t.Cleanup(func() { hostname = restore })

	hostname = func() (string, error) { return "node-3", nil }
	assert.Equal(t, "cron-worker@node-3", GetID("cron-worker"))

	hostname = func() (string, error) { return "", errors.New("no host") }
	assert.Equal(t, "cron-worker-0", GetID("cron-worker"))
}
