package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeServerURL turns operator input into a base URL for the sync server.
// Bare `host:port` (or `host`) gets an http:// scheme, trailing slashes are dropped.
func NormalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("server url is empty")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server url %q: %w", raw, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server url %q: scheme must be http or https", raw)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid server url %q: missing host", raw)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
