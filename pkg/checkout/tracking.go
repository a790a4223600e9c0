package checkout

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTrackingPrefix = "HL"

// TrackingNumber builds a delivery tracking number of the form
// PREFIX-YYYYMMDD-XXXXXXXX where the suffix is eight random hex characters.
func TrackingNumber(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultTrackingPrefix
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return prefix + "-" + now.UTC().Format("20060102") + "-" + suffix
}
