package tikresolve

import (
	"fmt"
	"strings"
)

const (
	platform    = "tiktok"
	h265Marker  = "h265"
	mpegAudio   = "mime_type=audio_mpeg"
	jpegVariant = ".jpeg?"
)

// selection is the outcome of classifying a post, before assembly.
type selection struct {
	filenameBase  string
	video         string
	videoFilename string
	audio         string
	audioFilename string
	bestAudio     string
	images        []Image
}

// FilenameBase is the stem every filename of a post starts with.
func FilenameBase(author, postID string) string {
	return fmt.Sprintf("%s_%s_%s", platform, author, postID)
}

// selectMedia decides between video and audio output and picks the addresses to use.
func (r *Resolver) selectMedia(req Request, postID string, item *PostDetail) selection {
	sel := selection{filenameBase: FilenameBase(authorHandle(item), postID)}

	if item.ImagePost != nil && len(item.ImagePost.Images) > 0 {
		sel.images = item.ImagePost.Images
	}

	var playAddr string
	if item.Video != nil {
		playAddr = item.Video.PlayAddr
	}
	if req.H265 {
		if alt := h265PlayAddr(item.Video); alt != "" {
			playAddr = alt
		} else {
			r.debugf("no h265 variant for %s, keeping default address", postID)
		}
	}

	if !req.IsAudioOnly && sel.images == nil {
		sel.video = playAddr
		sel.videoFilename = sel.filenameBase + ".mp4"
		return sel
	}

	sel.audio = playAddr
	sel.audioFilename = sel.filenameBase + "_audio"
	if req.FullAudio || sel.audio == "" {
		sel.audio = ""
		if item.Music != nil {
			sel.audio = item.Music.PlayURL
		}
		sel.audioFilename += "_original"
	}
	if strings.Contains(sel.audio, mpegAudio) {
		sel.bestAudio = "mp3"
	}
	return sel
}

// h265PlayAddr returns the first H.265 variant address, or "" when there is none.
func h265PlayAddr(video *Video) string {
	if video == nil {
		return ""
	}
	for _, variant := range video.BitrateInfo {
		if !strings.Contains(variant.CodecType, h265Marker) {
			continue
		}
		if variant.PlayAddr == nil || len(variant.PlayAddr.URLList) == 0 {
			return ""
		}
		return variant.PlayAddr.URLList[0]
	}
	return ""
}

// jpegURL picks the first JPEG representation of a photo.
func jpegURL(image Image) (string, bool) {
	if image.ImageURL == nil {
		return "", false
	}
	for _, u := range image.ImageURL.URLList {
		if strings.Contains(u, jpegVariant) {
			return u, true
		}
	}
	return "", false
}

func authorHandle(item *PostDetail) string {
	if item.Author == nil {
		return ""
	}
	return item.Author.UniqueID
}
