package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// PublicURL combines a public storage root with an object key, escaping each key segment.
func PublicURL(root, key string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("storage public root is not configured")
	}
	base, err := url.Parse(strings.TrimRight(root, "/"))
	if err != nil {
		return "", fmt.Errorf("parse storage public root: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("storage public root must be an http(s) url")
	}

	segments := strings.Split(strings.Trim(key, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return base.String() + "/" + strings.Join(segments, "/"), nil
}
