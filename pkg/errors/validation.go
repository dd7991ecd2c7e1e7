package errors

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds attribute and event names accepted from scenes and
// inspector requests.
const maxNameLength = 128

// attributeNameRegex matches view attribute names such as "opacity",
// "backgroundColor" or "shadow-offset".
var attributeNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidateAttributeName validates a view attribute name used by Props and
// Style mappings and by the native/UI partition.
func ValidateAttributeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "attribute name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidConfig, "attribute name too long (max %d characters)", maxNameLength)
	}
	if !attributeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidConfig, "invalid attribute name: %q", name)
	}
	return nil
}

// ValidateEventName validates a view-scoped event channel name.
//
// Event names are free-form identifiers chosen by the host (for example
// "onScroll" or "topGestureHandlerEvent") but must not contain whitespace or
// control characters.
func ValidateEventName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "event name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidConfig, "event name too long (max %d characters)", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidConfig, "event name contains invalid characters: %q", name)
		}
	}
	return nil
}

// ValidateScenePath validates a scene file path given on the command line.
// Only TOML and YAML scenes are accepted.
func ValidateScenePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "scene path cannot be empty")
	}
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "scene path contains invalid characters")
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return nil
	default:
		return New(ErrCodeInvalidFormat, "unsupported scene format %q (want .toml, .yaml or .yml)", filepath.Ext(path))
	}
}

// ValidateRedisURL validates a Redis connection URL for the artifact cache.
func ValidateRedisURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "redis URL cannot be empty")
	}
	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeInvalidInput, "redis URL must use redis or rediss scheme")
	}
	return nil
}
