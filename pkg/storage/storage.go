package storage

import (
	"errors"
	"time"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
)

// ErrNotFound is returned when no record exists for a post.
var ErrNotFound = errors.New("resolution not found")

// ResolutionRecord represents a single row from the resolutions table.
type ResolutionRecord struct {
	// PostID is the unique identifier for the post.
	PostID string
	// Author is the handle of the post's author.
	Author string
	// Kind is the classification the post resolved to.
	Kind tikresolve.Kind
	// Filename is the computed filename (video or audio).
	Filename string
	// URL is the primary media URL at resolution time. These expire quickly.
	URL string
	// ResolvedAt is when the resolution happened.
	ResolvedAt time.Time
}

// Storer defines the interface for database operations.
// This allows for different database backends to be used with the client.
type Storer interface {
	// AddResolution inserts or replaces the record for a post.
	AddResolution(rec ResolutionRecord) error
	// GetResolution returns the latest record for a post, or ErrNotFound.
	GetResolution(postID string) (*ResolutionRecord, error)
	// ListResolutions returns the most recent records, optionally filtered by kind.
	ListResolutions(kind tikresolve.Kind, limit int) ([]ResolutionRecord, error)
	// DeleteResolution removes the record of a post.
	DeleteResolution(postID string) error
	// Close closes the database connection.
	Close() error
}
