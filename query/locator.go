package query

import (
	"net/url"
	"strings"
)

// IsLocator reports whether s is an absolute resource address of the form
// scheme://host[/path]. Surrounding whitespace is ignored; interior
// whitespace disqualifies s.
func IsLocator(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	if !strings.Contains(s, "://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}
