package httpcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers is an immutable, case-insensitive multimap from field name to an
// ordered sequence of values. Every mutating method returns a new Headers
// value; the receiver is never modified. Public iteration (Names) preserves
// insertion order.
//
// The zero value is an empty, usable Headers.
type Headers struct {
	// names preserves first-seen insertion order of canonical keys.
	names []string
	// values maps canonical key to its ordered values.
	values map[string][]string
}

// canonical returns the canonical form of a header name (matching
// net/http.CanonicalHeaderKey so Headers composes cleanly with net/http
// values at the transport boundary).
func canonical(name string) string {
	return http.CanonicalHeaderKey(name)
}

// NewHeaders builds a Headers from a map of name to single value. Use Set
// for multi-valued construction.
func NewHeaders(m map[string]string) Headers {
	h := Headers{}
	for k, v := range m {
		h = h.Set(k, v)
	}
	return h
}

func (h Headers) clone() Headers {
	names := make([]string, len(h.names))
	copy(names, h.names)
	values := make(map[string][]string, len(h.values))
	for k, v := range h.values {
		cp := make([]string, len(v))
		copy(cp, v)
		values[k] = cp
	}
	return Headers{names: names, values: values}
}

// Set returns a copy of h with name's values replaced by the single value v.
func (h Headers) Set(name, v string) Headers {
	name = canonical(name)
	out := h.clone()
	if out.values == nil {
		out.values = make(map[string][]string)
	}
	if _, ok := out.values[name]; !ok {
		out.names = append(out.names, name)
	}
	out.values[name] = []string{v}
	return out
}

// Add returns a copy of h with v appended to name's existing values.
func (h Headers) Add(name, v string) Headers {
	name = canonical(name)
	out := h.clone()
	if out.values == nil {
		out.values = make(map[string][]string)
	}
	if _, ok := out.values[name]; !ok {
		out.names = append(out.names, name)
	}
	out.values[name] = append(out.values[name], v)
	return out
}

// Del returns a copy of h with name removed entirely.
func (h Headers) Del(name string) Headers {
	name = canonical(name)
	out := h.clone()
	if _, ok := out.values[name]; !ok {
		return out
	}
	delete(out.values, name)
	for i, n := range out.names {
		if n == name {
			out.names = append(out.names[:i], out.names[i+1:]...)
			break
		}
	}
	return out
}

// Get returns the first value for name, or "" if absent.
func (h Headers) Get(name string) string {
	vs := h.values[canonical(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for name, in insertion order. The returned slice
// must not be mutated by callers.
func (h Headers) Values(name string) []string {
	return h.values[canonical(name)]
}

// Has reports whether name is present, regardless of value.
func (h Headers) Has(name string) bool {
	_, ok := h.values[canonical(name)]
	return ok
}

// Names returns every header name present, in first-seen insertion order.
func (h Headers) Names() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// CommaValues splits every value for name on commas, trims whitespace, and
// drops empty fields — the representation RFC 9111 uses for multi-valued
// directive-bearing headers such as Vary and Cache-Control.
func (h Headers) CommaValues(name string) []string {
	var out []string
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

//===========================================================================
// Typed accessors for caching-relevant fields
//===========================================================================

// CacheControl returns the raw Cache-Control header value.
func (h Headers) CacheControl() string { return h.Get("Cache-Control") }

// Pragma returns the raw Pragma header value.
func (h Headers) Pragma() string { return h.Get("Pragma") }

// Date parses the Date header per RFC 1123 (HTTP-date). ok is false if the
// header is absent or malformed.
func (h Headers) Date() (t time.Time, ok bool) {
	return parseHTTPDate(h.Get("Date"))
}

// Expires parses the Expires header per RFC 1123 (HTTP-date).
func (h Headers) Expires() (t time.Time, ok bool) {
	return parseHTTPDate(h.Get("Expires"))
}

// Age parses the Age header as a non-negative number of seconds.
func (h Headers) Age() (d time.Duration, ok bool) {
	v := strings.TrimSpace(h.Get("Age"))
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}

// LastModified returns the raw Last-Modified header value.
func (h Headers) LastModified() string { return h.Get("Last-Modified") }

// ETag returns the raw ETag header value.
func (h Headers) ETag() string { return h.Get("ETag") }

// Vary returns the comma-split, trimmed values of the Vary header.
func (h Headers) Vary() []string { return h.CommaValues("Vary") }

// Allow returns the comma-split values of the Allow header.
func (h Headers) Allow() []string { return h.CommaValues("Allow") }

// Location returns the raw Location header value.
func (h Headers) Location() string { return h.Get("Location") }

// ContentLocation returns the raw Content-Location header value.
func (h Headers) ContentLocation() string { return h.Get("Content-Location") }

// ContentType returns the raw Content-Type header value.
func (h Headers) ContentType() string { return h.Get("Content-Type") }

func parseHTTPDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatHTTPDate renders t in the preferred RFC 9111 HTTP-date form.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
