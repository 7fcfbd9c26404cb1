package tikresolve

import (
	"context"
	"fmt"

	"github.com/perpetuallyhorni/tikresolve/pkg/cookie"
	"github.com/perpetuallyhorni/tikresolve/pkg/stream"
)

// Resolve turns req into resolved media. Every error it returns is a *ResolveError.
// Each call owns a fresh session, so concurrent calls never share cookies.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*ResolvedMedia, error) {
	session := cookie.New(nil)

	postID, err := r.PostID(ctx, req)
	if err != nil {
		return nil, err
	}

	html, err := r.fetchDetailPage(ctx, postID, session)
	if err != nil {
		return nil, err
	}
	detail, err := ParseDetail(html)
	if err != nil {
		return nil, err
	}
	item, err := detail.Item()
	if err != nil {
		return nil, err
	}

	sel := r.selectMedia(req, postID, item)
	return r.assemble(req, sel, ProjectMetadata(item), session)
}

// PostID returns the post identifier of req, probing the short link only when needed.
func (r *Resolver) PostID(ctx context.Context, req Request) (string, error) {
	if req.PostID != "" {
		return req.PostID, nil
	}
	if req.ShortLink == "" {
		return "", ErrFetchShortLink
	}
	return r.resolveShortLink(ctx, req.ShortLink)
}

// assemble picks the output shape for a selection.
func (r *Resolver) assemble(req Request, sel selection, meta *Metadata, session *cookie.Cookie) (*ResolvedMedia, error) {
	headers := map[string]string{"cookie": session.String()}

	switch {
	case sel.video != "":
		return &ResolvedMedia{
			Kind:     KindVideo,
			URLs:     sel.video,
			Filename: sel.videoFilename,
			Headers:  headers,
			Metadata: meta,
		}, nil

	case sel.images != nil && req.IsAudioOnly:
		return r.audioResult(KindAudioGallery, sel, headers, meta), nil

	case sel.images != nil:
		result := r.audioResult(KindPhotoGallery, sel, headers, meta)
		result.Picker = r.photoPicker(req, sel)
		return result, nil

	case sel.audio != "":
		return r.audioResult(KindAudio, sel, headers, meta), nil
	}
	return nil, newError(CodeFetchEmpty, fmt.Errorf("post %s has no usable media", meta.ID))
}

func (r *Resolver) audioResult(kind Kind, sel selection, headers map[string]string, meta *Metadata) *ResolvedMedia {
	return &ResolvedMedia{
		Kind:          kind,
		URLs:          sel.audio,
		AudioFilename: sel.audioFilename,
		IsAudioOnly:   true,
		BestAudio:     sel.bestAudio,
		Headers:       headers,
		Metadata:      meta,
	}
}

// photoPicker lists the JPEG representation of every photo, proxied when requested.
// Photos without a JPEG representation are skipped; numbering follows gallery position.
func (r *Resolver) photoPicker(req Request, sel selection) []PickerItem {
	picker := make([]PickerItem, 0, len(sel.images))
	for i, image := range sel.images {
		u, ok := jpegURL(image)
		if !ok {
			r.debugf("photo %d of %s has no jpeg variant", i+1, sel.filenameBase)
			continue
		}
		if req.AlwaysProxy && r.Streams != nil {
			u = r.Streams.Create(stream.Params{
				Service:  platform,
				Type:     stream.TypeProxy,
				URL:      u,
				Filename: fmt.Sprintf("%s_photo_%d.jpg", sel.filenameBase, i+1),
			})
		}
		picker = append(picker, PickerItem{Type: "photo", URL: u})
	}
	return picker
}
