package rpcclient

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeUID validates a resource uid and returns its canonical
// 32-character hex form (no dashes), which is what the downstream
// services key on.
func NormalizeUID(raw string) (string, bool) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", false
	}
	return strings.ReplaceAll(u.String(), "-", ""), true
}
