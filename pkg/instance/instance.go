package instance

import (
	"os"
	"strings"
)

// idSources are checked in order; the first non-empty value wins.
var idSources = []string{"INVENTORY_INSTANCE_ID", "DYNO", "HOSTNAME"}

// GetID returns the process instance identifier used in logs, or "local".
func GetID() string {
	for _, key := range idSources {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
