// Package validation checks user supplied URLs, paths and origins before
// they reach the network, the filesystem or a spawned process.
package validation

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/conneroisu/slimview/internal/errors"
)

// ValidateURL validates URLs for browser auto-open functionality.
// Prevents command injection via URL parameters.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.ErrInvalidURL(rawURL, err)
	}

	// Only allow http/https schemes to prevent protocol handlers
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.ErrInvalidURL(rawURL,
			fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme))
	}

	dangerous := []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r"}
	for _, char := range dangerous {
		if strings.Contains(rawURL, char) {
			return errors.ErrInvalidURL(rawURL,
				fmt.Errorf("URL contains dangerous character: %s", char))
		}
	}

	if strings.Contains(rawURL, " ") {
		return errors.ErrInvalidURL(rawURL,
			fmt.Errorf("URL contains spaces (possible command injection attempt)"))
	}

	if parsed.Host == "" {
		return errors.ErrInvalidURL(rawURL, fmt.Errorf("URL must have a valid hostname"))
	}

	return nil
}

// ValidateEndpoint validates a conversion service URL. Query strings are
// allowed; the URL is never passed to a shell.
func ValidateEndpoint(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.ErrInvalidURL(rawURL, fmt.Errorf("endpoint cannot be empty"))
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.ErrInvalidURL(rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.ErrInvalidURL(rawURL,
			fmt.Errorf("invalid endpoint scheme: %q (only http/https allowed)", parsed.Scheme))
	}
	if parsed.Host == "" {
		return errors.ErrInvalidURL(rawURL, fmt.Errorf("endpoint must have a hostname"))
	}
	if strings.ContainsAny(rawURL, " \n\r\t") {
		return errors.ErrInvalidURL(rawURL, fmt.Errorf("endpoint contains whitespace"))
	}

	return nil
}

// ValidateOrigin validates a WebSocket origin against allowed hosts or
// full origins.
func ValidateOrigin(origin string, allowedOrigins []string) error {
	if origin == "" {
		return fmt.Errorf("origin header is required")
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", originURL.Scheme)
	}

	for _, allowed := range allowedOrigins {
		if allowed == "*" || origin == allowed || originURL.Host == allowed {
			return nil
		}
	}

	return fmt.Errorf("origin '%s' is not in allowed origins list", origin)
}
