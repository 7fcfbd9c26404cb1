// Package stream registers remote media behind short-lived, signed tunnel URLs.
// The byte transfer itself is served by a tunnel: in-process through Store.Lookup, or
// in another process holding the same secret through Verify.
package stream

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// TypeProxy marks a stream that relays the origin bytes unchanged.
const TypeProxy = "proxy"

var (
	// ErrNotFound is returned for unknown or swept stream IDs.
	ErrNotFound = errors.New("stream not found")
	// ErrExpired is returned once a stream outlives its TTL.
	ErrExpired = errors.New("stream expired")
	// ErrBadSignature is returned when the signature does not match the entry.
	ErrBadSignature = errors.New("stream signature mismatch")
)

// Params describes the remote resource a stream points at.
type Params struct {
	Service  string
	Type     string
	URL      string
	Filename string
	Headers  map[string]string
}

// Entry is a registered stream.
type Entry struct {
	Params
	ID        string
	ExpiresAt time.Time
}

// Store keeps registered streams in memory.
type Store struct {
	mu      sync.Mutex
	baseURL string
	secret  []byte
	ttl     time.Duration
	entries map[string]*Entry
	now     func() time.Time
}

// New creates a Store issuing links under baseURL.
// An empty secret is replaced with a random one, which invalidates links across restarts.
func New(baseURL string, secret []byte, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("stream base url cannot be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("stream ttl must be positive, got %s", ttl)
	}
	if len(secret) > blake2b.Size {
		return nil, fmt.Errorf("stream secret must be at most %d bytes", blake2b.Size)
	}
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate stream secret: %w", err)
		}
	}
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		ttl:     ttl,
		entries: make(map[string]*Entry),
		now:     time.Now,
	}, nil
}

// Create registers p and returns the tunnel URL clients should fetch instead of the origin.
func (s *Store) Create(p Params) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{
		Params:    p,
		ID:        uuid.NewString(),
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.entries[entry.ID] = entry

	exp := entry.ExpiresAt.UnixMilli()
	q := url.Values{}
	q.Set("id", entry.ID)
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("service", p.Service)
	q.Set("type", p.Type)
	q.Set("url", p.URL)
	q.Set("filename", p.Filename)
	q.Set("sig", sign(s.secret, entry.ID, exp, p))
	return s.baseURL + "/tunnel?" + q.Encode()
}

// Verify checks a tunnel query using only the shared secret, without the Store that
// issued it. Headers are not carried by the link.
func Verify(secret []byte, query url.Values, now time.Time) (*Entry, error) {
	if len(secret) == 0 || len(secret) > blake2b.Size {
		return nil, fmt.Errorf("stream secret must be 1 to %d bytes", blake2b.Size)
	}
	exp, err := strconv.ParseInt(query.Get("exp"), 10, 64)
	if err != nil {
		return nil, ErrBadSignature
	}
	entry := &Entry{
		Params: Params{
			Service:  query.Get("service"),
			Type:     query.Get("type"),
			URL:      query.Get("url"),
			Filename: query.Get("filename"),
		},
		ID:        query.Get("id"),
		ExpiresAt: time.UnixMilli(exp),
	}
	if entry.ID == "" || entry.URL == "" {
		return nil, ErrNotFound
	}
	want := sign(secret, entry.ID, exp, entry.Params)
	if subtle.ConstantTimeCompare([]byte(want), []byte(query.Get("sig"))) != 1 {
		return nil, ErrBadSignature
	}
	if !now.Before(entry.ExpiresAt) {
		return nil, ErrExpired
	}
	return entry, nil
}

// Lookup verifies a tunnel request and returns the entry behind it.
func (s *Store) Lookup(id string, exp int64, sig string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.ExpiresAt.UnixMilli() != exp {
		return nil, ErrBadSignature
	}
	want := sign(s.secret, id, exp, entry.Params)
	if subtle.ConstantTimeCompare([]byte(want), []byte(sig)) != 1 {
		return nil, ErrBadSignature
	}
	if !s.now().Before(entry.ExpiresAt) {
		delete(s.entries, id)
		return nil, ErrExpired
	}
	copied := *entry
	return &copied, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sign computes a keyed BLAKE2b digest over the stream identity.
func sign(secret []byte, id string, exp int64, p Params) string {
	h, err := blake2b.New256(secret)
	if err != nil {
		// Key length is checked by callers.
		panic(err)
	}
	for _, part := range []string{id, strconv.FormatInt(exp, 10), p.Service, p.Type, p.URL, p.Filename} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
