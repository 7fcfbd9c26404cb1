package tikresolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/perpetuallyhorni/tikresolve/pkg/cookie"
	"github.com/perpetuallyhorni/tikresolve/pkg/pattern"
	"github.com/perpetuallyhorni/tikresolve/pkg/stream"
)

var (
	// BaseURL is the platform origin serving post detail pages.
	BaseURL string = "https://tiktok.com"
	// ShortURL is the origin of short links.
	ShortURL string = "https://vt.tiktok.com"
	// GenericUserAgent is the browser fingerprint sent with detail requests.
	GenericUserAgent string = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	// Debug enables verbose logging of resolution decisions.
	Debug = false
)

const anchorPrefix = `<a href="`

// Streamer rewrites a remote URL into one served by the stream tunnel.
type Streamer interface {
	Create(p stream.Params) string
}

// Resolver turns post references into resolved media. It holds no per-request state,
// so one Resolver may serve concurrent calls.
type Resolver struct {
	Client     *http.Client                                // Client performs both outbound requests.
	BaseURL    string                                      // BaseURL overrides the platform origin.
	ShortURL   string                                      // ShortURL overrides the short-link origin.
	UserAgent  string                                      // UserAgent overrides GenericUserAgent.
	Streams    Streamer                                    // Streams proxies photo links when AlwaysProxy is set.
	ExtractURL func(rawURL string) (*pattern.Match, error) // ExtractURL recognizes canonical post URLs.
	Logger     *log.Logger                                 // Logger receives debug output, may be nil.
}

// NewResolver creates a Resolver using the package defaults.
func NewResolver(client *http.Client, streams Streamer, logger *log.Logger) *Resolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &Resolver{
		Client:     client,
		BaseURL:    BaseURL,
		ShortURL:   ShortURL,
		UserAgent:  GenericUserAgent,
		Streams:    streams,
		ExtractURL: pattern.Extract,
		Logger:     logger,
	}
}

// ShortUserAgent strips the browser version tail from ua, leaving a stable prefix.
func ShortUserAgent(ua string) string {
	before, _, _ := strings.Cut(ua, " Chrome/1")
	return before
}

// resolveShortLink follows a short link by hand and returns the post ID it points at.
func (r *Resolver) resolveShortLink(ctx context.Context, token string) (string, error) {
	target := fmt.Sprintf("%s/%s", strings.TrimRight(r.ShortURL, "/"), token) // Short links live at the origin root.
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}
	req.Header.Set("user-agent", ShortUserAgent(r.UserAgent))

	noFollow := *r.Client // Shallow copy so the caller's redirect policy is untouched.
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}

	html := string(body)
	if !strings.HasPrefix(html, anchorPrefix+"https://") {
		return "", ErrFetchShortLink
	}
	canonical := strings.TrimPrefix(html, anchorPrefix)
	if i := strings.IndexAny(canonical, `?"`); i >= 0 {
		canonical = canonical[:i] // Drop the tracking query and the rest of the tag.
	}
	match, err := r.ExtractURL(canonical)
	if err != nil || match.PostID == "" {
		r.debugf("short link %s led to unrecognized url %q", token, canonical)
		return "", ErrFetchShortLink
	}
	return match.PostID, nil
}

// fetchDetailPage downloads the detail page of a post and folds its cookies into session.
// The /video/ path is used for every post kind, photo posts included.
func (r *Resolver) fetchDetailPage(ctx context.Context, postID string, session *cookie.Cookie) (string, error) {
	target := fmt.Sprintf("%s/@i/video/%s", strings.TrimRight(r.BaseURL, "/"), postID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}
	req.Header.Set("user-agent", r.UserAgent)
	if header := session.String(); header != "" {
		req.Header.Set("cookie", header)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}
	defer func() { _ = resp.Body.Close() }()
	cookie.Update(session, resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(CodeFetchFail, err)
	}
	return string(body), nil
}

// FetchDetailRaw returns the raw video-detail namespace for a post, without any checks.
func (r *Resolver) FetchDetailRaw(ctx context.Context, postID string) (json.RawMessage, error) {
	html, err := r.fetchDetailPage(ctx, postID, cookie.New(nil))
	if err != nil {
		return nil, err
	}
	raw, err := ExtractNamespace(html)
	if err != nil {
		return nil, newError(CodeFetchFail, err)
	}
	return raw, nil
}

func (r *Resolver) debugf(format string, args ...any) {
	if Debug && r.Logger != nil {
		r.Logger.Printf("DEBUG: "+format, args...)
	}
}
