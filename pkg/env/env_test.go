package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirst(t *testing.T) {
	t.Setenv("HARVESTLINK_LOG_FORMAT", "  ")
	t.Setenv("LOG_FORMAT", "console")
	assert.Equal(t, "console", First("json", "HARVESTLINK_LOG_FORMAT", "LOG_FORMAT"))

	t.Setenv("HARVESTLINK_LOG_FORMAT", "json")
	assert.Equal(t, "json", First("console", "HARVESTLINK_LOG_FORMAT", "LOG_FORMAT"))

	t.Setenv("HARVESTLINK_LOG_FORMAT", "")
	t.Setenv("LOG_FORMAT", "")
	assert.Equal(t, "json", First("json", "HARVESTLINK_LOG_FORMAT", "LOG_FORMAT"))
}
