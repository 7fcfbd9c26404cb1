package tikresolve

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// rehydrationMarker opens the script tag carrying the page state.
	rehydrationMarker = `<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">`
	scriptEnd         = `</script>`
	videoDetailScope  = "webapp.video-detail"
)

var (
	errNoMarker    = errors.New("rehydration script not found")
	errNoNamespace = errors.New("video detail namespace not found")
)

// ExtractNamespace pulls the raw video-detail namespace out of a detail page.
func ExtractNamespace(html string) (json.RawMessage, error) {
	_, rest, found := strings.Cut(html, rehydrationMarker)
	if !found {
		return nil, errNoMarker
	}
	payload, _, _ := strings.Cut(rest, scriptEnd)

	var data struct {
		Scope map[string]json.RawMessage `json:"__DEFAULT_SCOPE__"`
	}
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to decode rehydration payload: %w", err)
	}
	raw, ok := data.Scope[videoDetailScope]
	if !ok || isNull(raw) {
		return nil, errNoNamespace
	}
	return raw, nil
}

// ParseDetail decodes the video-detail namespace of a detail page.
// Any failure to locate or decode it is reported as fetch.fail.
func ParseDetail(html string) (*VideoDetail, error) {
	raw, err := ExtractNamespace(html)
	if err != nil {
		return nil, newError(CodeFetchFail, err)
	}
	var detail VideoDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, newError(CodeFetchFail, fmt.Errorf("failed to decode video detail: %w", err))
	}
	return &detail, nil
}

// Item applies the availability checks to a parsed namespace and returns the post.
func (d *VideoDetail) Item() (*PostDetail, error) {
	if d.StatusMsg != "" {
		return nil, newError(CodePostUnavailable, fmt.Errorf("status %d: %s", d.StatusCode, d.StatusMsg))
	}
	if d.ItemInfo == nil || d.ItemInfo.ItemStruct == nil {
		return nil, newError(CodeFetchFail, errors.New("item struct missing"))
	}
	item := d.ItemInfo.ItemStruct
	if item.IsContentClassified {
		return nil, ErrPostAgeRestricted
	}
	if item.Author == nil {
		return nil, ErrFetchEmpty
	}
	return item, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
