package utils

import "regexp"

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// IsValidSlug reports whether name is a lowercase URL-safe slug.
func IsValidSlug(name string) bool {
	return len(name) > 0 && len(name) <= 64 && slugPattern.MatchString(name)
}
