package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tikresolve "github.com/perpetuallyhorni/tikresolve/internal"
	"github.com/perpetuallyhorni/tikresolve/pkg/config"
	"github.com/perpetuallyhorni/tikresolve/pkg/network"
	"github.com/perpetuallyhorni/tikresolve/pkg/pattern"
	"github.com/perpetuallyhorni/tikresolve/pkg/storage"
	"github.com/perpetuallyhorni/tikresolve/pkg/stream"
)

// ErrInvalidTarget is returned for targets that are neither post URLs, IDs nor short links.
var ErrInvalidTarget = errors.New("invalid target")

// Client is the main entry point for interacting with the tikresolve library.
type Client struct {
	cfg      *config.Config
	db       storage.Storer
	logger   *log.Logger
	resolver *tikresolve.Resolver
	streams  *stream.Store
}

// New creates a new Client.
func New(cfg *config.Config, db storage.Storer, logger *log.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	httpClient, err := network.NewHTTPClient(cfg.BindAddress, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}
	streams, err := stream.New(cfg.StreamBaseURL, []byte(cfg.StreamSecret), cfg.StreamTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream store: %w", err)
	}

	resolver := tikresolve.NewResolver(httpClient, streams, logger)
	if cfg.PlatformDomain != "" {
		resolver.BaseURL = cfg.PlatformDomain
	}
	if cfg.ShortDomain != "" {
		resolver.ShortURL = cfg.ShortDomain
	}
	if cfg.UserAgent != "" {
		resolver.UserAgent = cfg.UserAgent
	}

	return &Client{cfg: cfg, db: db, logger: logger, resolver: resolver, streams: streams}, nil
}

// Streams returns the store holding proxied links issued by this client.
func (c *Client) Streams() *stream.Store {
	return c.streams
}

// ParseTarget turns a pasted URL, numeric post ID or short-link token into a request.
func ParseTarget(target string) (tikresolve.Request, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return tikresolve.Request{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	case pattern.IsPostID(target):
		return tikresolve.Request{PostID: target}, nil
	case pattern.IsShortLink(target):
		return tikresolve.Request{ShortLink: target}, nil
	}

	m, err := pattern.Extract(target)
	if err != nil {
		return tikresolve.Request{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	return tikresolve.Request{PostID: m.PostID, ShortLink: m.ShortLink}, nil
}

// Resolve resolves a single target using the options from the configuration.
func (c *Client) Resolve(ctx context.Context, target string) (*tikresolve.ResolvedMedia, error) {
	req, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	opts := c.cfg.Options()
	req.IsAudioOnly, req.FullAudio, req.H265, req.AlwaysProxy = opts.IsAudioOnly, opts.FullAudio, opts.H265, opts.AlwaysProxy
	return c.ResolveRequest(ctx, req)
}

// ResolveRequest resolves req and records the outcome in the history.
func (c *Client) ResolveRequest(ctx context.Context, req tikresolve.Request) (*tikresolve.ResolvedMedia, error) {
	started := time.Now()
	result, err := c.resolver.Resolve(ctx, req)
	if err != nil {
		c.logger.Printf("ERROR: resolve %s: %v", describe(req), err)
		return nil, err
	}
	c.logger.Printf("INFO: resolved %s as %s in %s", describe(req), result.Kind, time.Since(started).Round(time.Millisecond))

	rec := storage.ResolutionRecord{
		PostID:     result.Metadata.ID,
		Author:     result.Author(),
		Kind:       result.Kind,
		Filename:   result.Filename,
		URL:        result.URLs,
		ResolvedAt: time.Now(),
	}
	if rec.Filename == "" {
		rec.Filename = result.AudioFilename
	}
	if rec.PostID == "" {
		rec.PostID = req.PostID
	}
	if rec.PostID != "" {
		if err := c.db.AddResolution(rec); err != nil {
			// History is best effort; the resolution itself succeeded.
			c.logger.Printf("WARN: failed to record resolution of %s: %v", rec.PostID, err)
		}
	}
	return result, nil
}

// History lists recorded resolutions, newest first.
func (c *Client) History(kind tikresolve.Kind, limit int) ([]storage.ResolutionRecord, error) {
	return c.db.ListResolutions(kind, limit)
}

// DebugDetail returns the raw video-detail namespace of a target.
func (c *Client) DebugDetail(ctx context.Context, target string) (json.RawMessage, error) {
	req, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	postID, err := c.resolver.PostID(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.resolver.FetchDetailRaw(ctx, postID)
}

func describe(req tikresolve.Request) string {
	if req.PostID != "" {
		return "post " + req.PostID
	}
	return "short link " + req.ShortLink
}
