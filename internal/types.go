package tikresolve

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind classifies a resolved post.
type Kind string

const (
	// KindVideo is a single video with its own audio.
	KindVideo Kind = "video"
	// KindAudio is a single audio track.
	KindAudio Kind = "audio"
	// KindPhotoGallery is a set of photos with an accompanying audio track.
	KindPhotoGallery Kind = "photo_gallery"
	// KindAudioGallery is the audio track of a photo post, photos omitted on request.
	KindAudioGallery Kind = "audio_gallery"
)

// Request describes one resolution. PostID, when set, skips short-link resolution.
type Request struct {
	PostID      string `json:"postId,omitempty"`
	ShortLink   string `json:"shortLink,omitempty"`
	IsAudioOnly bool   `json:"isAudioOnly"`
	FullAudio   bool   `json:"fullAudio"`
	H265        bool   `json:"h265"`
	AlwaysProxy bool   `json:"alwaysProxy"`
}

// FlexInt is a number that may arrive either as a JSON number or as a numeric string.
// Unparseable values decode to zero instead of failing the whole payload.
type FlexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(string(data), 10, 64); err == nil {
		*n = FlexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(string(data), 64); err == nil {
		*n = FlexInt(v)
		return nil
	}
	*n = 0
	return nil
}

// VideoDetail is the "webapp.video-detail" namespace of the rehydration payload.
type VideoDetail struct {
	// StatusCode is the platform's status for the lookup.
	StatusCode int `json:"statusCode"`
	// StatusMsg is non-empty when the post is removed, private or otherwise unavailable.
	StatusMsg string `json:"statusMsg"`
	// ItemInfo wraps the post itself.
	ItemInfo *ItemInfo `json:"itemInfo"`
}

// UnmarshalJSON decodes the namespace field by field. Only a namespace that is not
// an object fails; a mis-shaped field is left at its zero value.
func (d *VideoDetail) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*d = VideoDetail{}
	decodeField(fields, "statusCode", &d.StatusCode)
	decodeField(fields, "statusMsg", &d.StatusMsg)
	decodeField(fields, "itemInfo", &d.ItemInfo)
	return nil
}

// ItemInfo wraps a post record.
type ItemInfo struct {
	ItemStruct *PostDetail `json:"itemStruct"`
}

// PostDetail is the platform's description of a post. Every sub-record is optional.
type PostDetail struct {
	// ID is the post identifier.
	ID string `json:"id"`
	// Desc is the caption.
	Desc *string `json:"desc"`
	// IsContentClassified marks age-restricted posts.
	IsContentClassified bool `json:"isContentClassified"`
	// Author is the posting account.
	Author *Author `json:"author"`
	// Video holds the video stream and its variants.
	Video *Video `json:"video"`
	// Music is the sound attached to the post.
	Music *Music `json:"music"`
	// Stats holds engagement counters.
	Stats *Stats `json:"stats"`
	// ImagePost is present for photo posts.
	ImagePost *ImagePost `json:"imagePost"`
}

// UnmarshalJSON decodes each sub-record on its own, leaving mis-shaped ones nil.
func (p *PostDetail) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*p = PostDetail{}
	if raw, ok := fields["id"]; ok {
		var n json.Number
		if json.Unmarshal(raw, &p.ID) != nil && json.Unmarshal(raw, &n) == nil {
			p.ID = n.String()
		}
	}
	decodeField(fields, "desc", &p.Desc)
	decodeField(fields, "isContentClassified", &p.IsContentClassified)
	decodeField(fields, "author", &p.Author)
	decodeField(fields, "video", &p.Video)
	decodeField(fields, "music", &p.Music)
	decodeField(fields, "stats", &p.Stats)
	decodeField(fields, "imagePost", &p.ImagePost)
	return nil
}

// decodeField decodes fields[key] into dst, leaving dst untouched when the key is
// absent or its value has an unexpected shape.
func decodeField[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return
	}
	*dst = v
}

// Author is the account that published a post.
type Author struct {
	UniqueID string `json:"uniqueId"`
	Nickname string `json:"nickname"`
}

// Video describes the video stream of a post.
type Video struct {
	PlayAddr    string        `json:"playAddr"`
	Width       FlexInt       `json:"width"`
	Height      FlexInt       `json:"height"`
	Duration    FlexInt       `json:"duration"`
	BitrateInfo []BitrateInfo `json:"bitrateInfo"`
}

// UnmarshalJSON keeps the play address when other video fields are mis-shaped.
func (v *Video) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*v = Video{}
	decodeField(fields, "playAddr", &v.PlayAddr)
	decodeField(fields, "width", &v.Width)
	decodeField(fields, "height", &v.Height)
	decodeField(fields, "duration", &v.Duration)
	decodeField(fields, "bitrateInfo", &v.BitrateInfo)
	return nil
}

// BitrateInfo is an alternate encoding of the same video.
type BitrateInfo struct {
	CodecType string    `json:"CodecType"`
	PlayAddr  *PlayAddr `json:"PlayAddr"`
}

// PlayAddr lists mirrors of one media resource.
type PlayAddr struct {
	URLList []string `json:"UrlList"`
}

// Music is the sound attached to a post.
type Music struct {
	PlayURL    string `json:"playUrl"`
	Title      string `json:"title"`
	AuthorName string `json:"authorName"`
}

// Stats holds engagement counters.
type Stats struct {
	DiggCount    FlexInt `json:"diggCount"`
	ShareCount   FlexInt `json:"shareCount"`
	CommentCount FlexInt `json:"commentCount"`
	PlayCount    FlexInt `json:"playCount"`
}

// ImagePost is the photo gallery of a photo post.
type ImagePost struct {
	Images []Image `json:"images"`
}

// Image is one photo of a gallery.
type Image struct {
	ImageURL *ImageURL `json:"imageURL"`
}

// ImageURL lists the representations of one photo.
type ImageURL struct {
	URLList []string `json:"urlList"`
}

// Metadata is the normalized description of a post, independent of its kind.
type Metadata struct {
	ID          string      `json:"id"`
	Description *string     `json:"description"`
	Video       *VideoMeta  `json:"video"`
	Author      *AuthorMeta `json:"author"`
	Music       *MusicMeta  `json:"music"`
	Stats       *StatsMeta  `json:"stats"`
}

// VideoMeta holds video dimensions and duration in seconds.
type VideoMeta struct {
	Width    int64 `json:"width"`
	Height   int64 `json:"height"`
	Duration int64 `json:"duration"`
}

// AuthorMeta names the author.
type AuthorMeta struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// MusicMeta names the attached sound.
type MusicMeta struct {
	Name   string `json:"name"`
	Author string `json:"author"`
}

// StatsMeta holds engagement counters.
type StatsMeta struct {
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
	Views    int64 `json:"views"`
}

// PickerItem is one selectable media entry of a gallery.
type PickerItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ResolvedMedia is the outcome of a successful resolution.
// Video results set Filename; audio and gallery results set AudioFilename.
type ResolvedMedia struct {
	Kind          Kind              `json:"kind"`
	URLs          string            `json:"urls"`
	Filename      string            `json:"filename,omitempty"`
	AudioFilename string            `json:"audioFilename,omitempty"`
	IsAudioOnly   bool              `json:"isAudioOnly,omitempty"`
	BestAudio     string            `json:"bestAudio,omitempty"`
	Picker        []PickerItem      `json:"picker,omitempty"`
	Headers       map[string]string `json:"headers"`
	Metadata      *Metadata         `json:"videoMetadata"`
}

// Author returns the author handle of the resolved post, if known.
func (m *ResolvedMedia) Author() string {
	if m == nil || m.Metadata == nil || m.Metadata.Author == nil {
		return ""
	}
	return m.Metadata.Author.Username
}
