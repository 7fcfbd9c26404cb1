// Package cookie holds the anonymous session carried between platform requests.
package cookie

import (
	"net/http"
	"strings"
	"time"
)

// Cookie is a mutable, ordered set of cookie values.
// A Cookie belongs to a single resolution and must not be shared between goroutines.
type Cookie struct {
	names  []string
	values map[string]string
}

// New creates a Cookie seeded with the given values.
func New(values map[string]string) *Cookie {
	c := &Cookie{values: make(map[string]string, len(values))}
	for name, value := range values {
		c.Set(name, value)
	}
	return c
}

// Set stores a value, keeping the original position of an existing name.
func (c *Cookie) Set(name, value string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[name]; !ok {
		c.names = append(c.names, name)
	}
	c.values[name] = value
}

// Unset removes a value if present.
func (c *Cookie) Unset(name string) {
	if _, ok := c.values[name]; !ok {
		return
	}
	delete(c.values, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

// Get returns the value stored under name.
func (c *Cookie) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Len returns the number of stored values.
func (c *Cookie) Len() int {
	return len(c.names)
}

// Values returns a copy of the stored values.
func (c *Cookie) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// String serializes the cookie in request header form ("a=1; b=2").
func (c *Cookie) String() string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.names))
	for _, name := range c.names {
		parts = append(parts, name+"="+c.values[name])
	}
	return strings.Join(parts, "; ")
}

// Update merges the Set-Cookie directives found in headers into c.
// Existing values survive unless a directive overwrites them; expired directives delete.
func Update(c *Cookie, headers http.Header) {
	if c == nil || len(headers) == 0 {
		return
	}
	resp := http.Response{Header: headers}
	now := time.Now()
	for _, directive := range resp.Cookies() {
		if expired(directive, now) {
			c.Unset(directive.Name)
			continue
		}
		c.Set(directive.Name, directive.Value)
	}
}

// expired reports whether a directive asks the client to drop the cookie.
func expired(directive *http.Cookie, now time.Time) bool {
	if directive.MaxAge < 0 {
		return true
	}
	return !directive.Expires.IsZero() && directive.Expires.Before(now)
}
