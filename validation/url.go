package validation

import (
	"errors"
	"net/url"
	"strings"
)

// ValidateUrl validates a URL provided by the user, and returns a formatted URL as a string.
// URLs without a scheme are assumed to be https. When allowedHosts is non-empty, the hostname must
// match one of them exactly, or be a subdomain of one.
func ValidateUrl(userUrl string, allowedHosts []string) (validatedUrl string, hostname string, err error) {
	userUrl = strings.TrimSpace(userUrl)
	if userUrl == "" {
		return "", "", errors.New("missing url")
	}

	if !strings.HasPrefix(userUrl, "https://") && !strings.HasPrefix(userUrl, "http://") && !strings.Contains(userUrl, "://") {
		userUrl = "https://" + userUrl
	}

	u, err := url.Parse(userUrl)
	if err != nil {
		return "", "", errors.New("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", u.Hostname(), errors.New("unsupported scheme " + u.Scheme)
	}
	if u.Hostname() == "" {
		return "", "", errors.New("missing hostname")
	}

	if !IsAuthorized(u, allowedHosts) {
		return "", u.Hostname(), errors.New("domain " + u.Hostname() + " not authorized")
	}

	return u.String(), u.Hostname(), nil
}

// IsAuthorized returns true if the given URL’s domain is in the list of allowed hosts, or if the
// list is empty.
func IsAuthorized(u *url.URL, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}
	hostname := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		if hostname == allowed || strings.HasSuffix(hostname, "."+allowed) {
			return true
		}
	}
	return false
}
