package util

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// ShortUUID generates a URL-safe 22 character identifier
func ShortUUID() string {
	u := uuid.New()
	return base64.RawURLEncoding.EncodeToString(u[:])
}
