package domain

import "time"

// Cookie is a single browser cookie captured during session harvest.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Session is a browser-harvested credential set used for direct API
// calls: cookies, the exact user agent the browser reported, and the
// request headers the site expects.
type Session struct {
	Cookies   []Cookie
	UserAgent string
	Headers   map[string]string
	CreatedAt time.Time
	TTL       time.Duration
}

// Valid reports whether the session exists and has not aged out.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || len(s.Cookies) == 0 {
		return false
	}
	return now.Sub(s.CreatedAt) < s.TTL
}

// CookieHeader renders the cookies as a single Cookie header value.
func (s *Session) CookieHeader() string {
	out := ""
	for i, c := range s.Cookies {
		if i > 0 {
			out += "; "
		}
		out += c.Name + "=" + c.Value
	}
	return out
}
