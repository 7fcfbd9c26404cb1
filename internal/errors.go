package tikresolve

import "fmt"

// ErrorCode is the stable identifier of a resolution failure.
type ErrorCode string

const (
	CodeFetchFail         ErrorCode = "fetch.fail"
	CodeFetchShortLink    ErrorCode = "fetch.short_link"
	CodeFetchEmpty        ErrorCode = "fetch.empty"
	CodePostUnavailable   ErrorCode = "content.post.unavailable"
	CodePostAgeRestricted ErrorCode = "content.post.age"
)

// ResolveError is the only error type Resolve returns.
type ResolveError struct {
	Code ErrorCode
	Err  error // underlying cause, may be nil
}

var (
	// ErrFetchFail matches transport failures and unusable detail payloads.
	ErrFetchFail = &ResolveError{Code: CodeFetchFail}
	// ErrFetchShortLink matches short links that did not lead to a post ID.
	ErrFetchShortLink = &ResolveError{Code: CodeFetchShortLink}
	// ErrFetchEmpty matches payloads without an author or without any media.
	ErrFetchEmpty = &ResolveError{Code: CodeFetchEmpty}
	// ErrPostUnavailable matches removed or private posts.
	ErrPostUnavailable = &ResolveError{Code: CodePostUnavailable}
	// ErrPostAgeRestricted matches age-restricted posts.
	ErrPostAgeRestricted = &ResolveError{Code: CodePostAgeRestricted}
)

func newError(code ErrorCode, err error) *ResolveError {
	return &ResolveError{Code: code, Err: err}
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return string(e.Code)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// Is matches any ResolveError carrying the same code.
func (e *ResolveError) Is(target error) bool {
	t, ok := target.(*ResolveError)
	return ok && t.Code == e.Code
}
