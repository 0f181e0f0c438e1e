package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var trackingIDPattern = regexp.MustCompile(`^(TRK|MAN)-[A-Z0-9]{8}$`)

// GenerateTrackingID returns prefix followed by 8 uppercase hex characters
// taken from a random UUID.
func GenerateTrackingID(prefix string) string {
	return prefix + strings.ToUpper(uuid.New().String()[:8])
}

// IsTrackingID reports whether s has the shape of a tracking id
func IsTrackingID(s string) bool {
	return trackingIDPattern.MatchString(s)
}

// ParseUUID parses a string into a UUID
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}
