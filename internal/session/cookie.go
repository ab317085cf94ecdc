package session

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrCookieParseSkip is reported for every Set-Cookie value that could not be
// understood, the value is dropped and ingestion continues.
var ErrCookieParseSkip = errors.New("session: skipped malformed cookie")

type SameSite int

const (
	SAME_SITE_UNSET SameSite = iota
	SAME_SITE_LAX
	SAME_SITE_STRICT
	SAME_SITE_NONE
)

// Cookie is a single stored cookie.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HttpOnly bool
	SameSite SameSite
}

// Expired reports whether the cookie carries an expiry that is not after now.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func (c Cookie) matchesPath(path string) bool {
	if c.Path == "" || c.Path == "/" {
		return true
	}
	if path == "" {
		path = "/"
	}
	if path == c.Path {
		return true
	}
	if !strings.HasPrefix(path, c.Path) {
		return false
	}
	return strings.HasSuffix(c.Path, "/") || path[len(c.Path)] == '/'
}

// SplitSetCookie splits a header value that may contain several comma-joined
// cookies. A comma directly after the weekday of an Expires date belongs to
// the date ("Expires=Wed, 21 Oct 2026 07:28:00 GMT").
func SplitSetCookie(header string) []string {
	var parts []string
	start := 0
	attrStart := 0
	for i := 0; i < len(header); i++ {
		switch header[i] {
		case ';':
			attrStart = i + 1
		case ',':
			if insideExpiresWeekday(header[attrStart:i]) {
				continue
			}
			part := strings.TrimSpace(header[start:i])
			if part != "" {
				parts = append(parts, part)
			}
			start = i + 1
			attrStart = i + 1
		}
	}
	last := strings.TrimSpace(header[start:])
	if last != "" {
		parts = append(parts, last)
	}
	return parts
}

var cookieWeekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// insideExpiresWeekday reports whether attr is an Expires attribute whose value
// so far is only an English weekday name.
func insideExpiresWeekday(attr string) bool {
	attr = strings.TrimSpace(attr)
	eq := strings.IndexByte(attr, '=')
	if eq < 0 || !strings.EqualFold(strings.TrimSpace(attr[:eq]), "expires") {
		return false
	}
	return cookieWeekdays[strings.ToLower(strings.TrimSpace(attr[eq+1:]))]
}

var cookieDateLayouts = []string{
	"Monday, 02-Jan-2006 15:04:05 MST",
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700",
}

func parseCookieDate(value string) (time.Time, error) {
	t, err := http.ParseTime(value)
	if err == nil {
		return t, nil
	}
	for _, layout := range cookieDateLayouts {
		t, lerr := time.Parse(layout, value)
		if lerr == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, err
}

// parseSetCookie parses a single cookie line, now is used to resolve Max-Age.
func parseSetCookie(line string, now time.Time) (Cookie, error) {
	attrs := strings.Split(line, ";")

	nameValue := strings.TrimSpace(attrs[0])
	eq := strings.IndexByte(nameValue, '=')
	if eq <= 0 {
		return Cookie{}, ErrCookieParseSkip
	}
	name := strings.TrimSpace(nameValue[:eq])
	if strings.ContainsAny(name, " \t\"(),/:<=>?@[\\]{}") {
		return Cookie{}, ErrCookieParseSkip
	}
	value := strings.Trim(strings.TrimSpace(nameValue[eq+1:]), `"`)

	c := Cookie{Name: name, Value: value}
	var maxAge *time.Time
	for _, attr := range attrs[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		key, val, _ := strings.Cut(attr, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "domain":
			c.Domain = strings.TrimPrefix(strings.ToLower(val), ".")
		case "path":
			if strings.HasPrefix(val, "/") {
				c.Path = val
			}
		case "expires":
			expires, err := parseCookieDate(val)
			if err == nil {
				c.Expires = expires
			}
		case "max-age":
			seconds, err := strconv.Atoi(val)
			if err != nil {
				continue
			}
			var at time.Time
			if seconds <= 0 {
				at = time.Unix(0, 0)
			} else {
				at = now.Add(time.Duration(seconds) * time.Second)
			}
			maxAge = &at
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "samesite":
			switch strings.ToLower(val) {
			case "lax":
				c.SameSite = SAME_SITE_LAX
			case "strict":
				c.SameSite = SAME_SITE_STRICT
			case "none":
				c.SameSite = SAME_SITE_NONE
			}
		}
	}
	if maxAge != nil {
		c.Expires = *maxAge
	}
	return c, nil
}
