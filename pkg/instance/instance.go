package instance

import (
	"os"

	"github.com/harvestlink/harvestlink-backend/pkg/env"
)

// EnvInstanceID overrides the generated process identifier.
const EnvInstanceID = "HARVESTLINK_INSTANCE_ID"

var hostname = os.Hostname

// GetID identifies this process in logs and lock ownership. It prefers
// HARVESTLINK_INSTANCE_ID, then the hostname, then "<service>-0".
func GetID(service string) string {
	if id := env.First("", EnvInstanceID); id != "" {
		return id
	}
	if host, err := hostname(); err == nil && host != "" {
		return service + "@" + host
	}
	return service + "-0"
}
