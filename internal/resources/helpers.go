package resources

import (
	"fmt"
	"net/url"
	"strings"
)

// sessionIDFromURI extracts the id from safety://sessions/{id}/status.
func sessionIDFromURI(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid resource URI %q: %w", raw, err)
	}
	if u.Scheme != "safety" || u.Host != "sessions" {
		return "", fmt.Errorf("unsupported resource URI %q", raw)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[1] != "status" || parts[0] == "" {
		return "", fmt.Errorf("resource URI %q does not name a session status", raw)
	}
	id, err := url.PathUnescape(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid session id in %q: %w", raw, err)
	}
	return id, nil
}
