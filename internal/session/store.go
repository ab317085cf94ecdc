package session

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/assert"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/chrono"
	"github.com/Missing-API/vhs-vg-courses-sub000/internal/components/telemetry"
)

const (
	report_store_ingest = "store.ingest"
)

// Store is a cookie jar for one browser-like session. Cookies are keyed by the
// registrable domain of the url they were received from. A Store that has not
// been used for longer than its idle timeout behaves as if it were empty.
//
// A Store is safe for concurrent use, every read and mutation is serialized.
type Store struct {
	mutex       sync.Mutex
	domains     map[string]map[string]Cookie
	lastUsed    time.Time
	idleTimeout time.Duration

	time chrono.TimeAPI
	tel  telemetry.API
}

// NewStore creates an empty Store, an idleTimeout <= 0 disables expiry.
func NewStore(idleTimeout time.Duration, clock chrono.TimeAPI, tel telemetry.API) *Store {
	assert.NotNil(clock)
	assert.NotNil(tel)

	return &Store{
		domains:     map[string]map[string]Cookie{},
		idleTimeout: idleTimeout,
		time:        clock,
		tel:         telemetry.NewScopedAPI("session", tel),
	}
}

// RegistrableDomain returns the last two labels of a host ("www.vhs-vg.de" ->
// "vhs-vg.de"), or the host itself if it has fewer labels or is an ip.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return host
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

func (s *Store) expiredLocked(now time.Time) bool {
	if s.idleTimeout <= 0 || s.lastUsed.IsZero() {
		return false
	}
	return now.Sub(s.lastUsed) > s.idleTimeout
}

// IsExpired reports whether the session has been idle for longer than its timeout.
func (s *Store) IsExpired() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.expiredLocked(s.time.Now())
}

// Reset clears all cookies.
func (s *Store) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.resetLocked()
}

func (s *Store) resetLocked() {
	s.domains = map[string]map[string]Cookie{}
	s.lastUsed = time.Time{}
}

// touchLocked refreshes the idle timer, an expired session is emptied first.
func (s *Store) touchLocked(now time.Time) {
	if s.expiredLocked(now) {
		s.resetLocked()
	}
	s.lastUsed = now
}

// AttachCookies returns the value of a Cookie header for a request to link,
// or an empty string if no stored cookie applies.
func (s *Store) AttachCookies(link *url.URL) string {
	if link == nil {
		return ""
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.time.Now()
	s.touchLocked(now)

	jar := s.domains[RegistrableDomain(link.Host)]
	if len(jar) == 0 {
		return ""
	}

	host := strings.ToLower(link.Hostname())
	var pairs []string
	for _, c := range jar {
		if c.Expired(now) {
			continue
		}
		if c.Secure && link.Scheme != "https" {
			continue
		}
		if c.Domain != "" && host != c.Domain && !strings.HasSuffix(host, "."+c.Domain) {
			continue
		}
		if !c.matchesPath(link.EscapedPath()) {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", c.Name, c.Value))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "; ")
}

// Ingest stores every cookie in the given Set-Cookie values, each value may
// itself hold several comma-joined cookies. Malformed cookies are skipped.
func (s *Store) Ingest(link *url.URL, setCookieValues []string) {
	if link == nil {
		return
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.time.Now()
	s.touchLocked(now)

	domain := RegistrableDomain(link.Host)
	for _, value := range setCookieValues {
		for _, line := range SplitSetCookie(value) {
			c, err := parseSetCookie(line, now)
			if err != nil {
				s.tel.ReportWarning(report_store_ingest, err, line)
				continue
			}
			jar, ok := s.domains[domain]
			if !ok {
				jar = map[string]Cookie{}
				s.domains[domain] = jar
			}
			jar[c.Name] = c
		}
	}
}

// Cookies returns a snapshot of the cookies stored for the registrable domain
// of host, sorted by name. Expired cookies are included.
func (s *Store) Cookies(host string) []Cookie {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	jar := s.domains[RegistrableDomain(host)]
	out := make([]Cookie, 0, len(jar))
	for _, c := range jar {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
