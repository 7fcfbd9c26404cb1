package tikresolve

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/perpetuallyhorni/tikresolve/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStreamer struct {
	params []stream.Params
}

func (s *recordingStreamer) Create(p stream.Params) string {
	s.params = append(s.params, p)
	return "http://proxy.local/tunnel/" + p.Filename
}

// fakePlatform serves detail pages and short links.
type fakePlatform struct {
	detail     *httptest.Server
	short      *httptest.Server
	shortHits  atomic.Int32
	detailHits atomic.Int32
	lastCookie atomic.Value
	lastPath   atomic.Value
	page       string
	shortBody  string
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	p := &fakePlatform{}
	p.detail = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.detailHits.Add(1)
		p.lastPath.Store(r.URL.Path)
		p.lastCookie.Store(r.Header.Get("cookie"))
		assert.Equal(t, GenericUserAgent, r.Header.Get("user-agent"))
		http.SetCookie(w, &http.Cookie{Name: "ttwid", Value: "abc", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "tt_csrf_token", Value: "tok", Path: "/"})
		_, _ = w.Write([]byte(p.page))
	}))
	p.short = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/followed" {
			t.Errorf("short link redirect must not be followed")
			return
		}
		p.shortHits.Add(1)
		assert.Equal(t, ShortUserAgent(GenericUserAgent), r.Header.Get("user-agent"))
		w.Header().Set("Location", "/followed")
		w.WriteHeader(http.StatusMovedPermanently)
		_, _ = w.Write([]byte(p.shortBody))
	}))
	t.Cleanup(func() {
		p.detail.Close()
		p.short.Close()
	})
	return p
}

func (p *fakePlatform) resolver(streams Streamer) *Resolver {
	r := NewResolver(p.detail.Client(), streams, nil)
	r.BaseURL = p.detail.URL
	r.ShortURL = p.short.URL
	return r
}

func item(fields map[string]any) map[string]any {
	return map[string]any{"statusCode": 0, "itemInfo": map[string]any{"itemStruct": fields}}
}

func videoItem() map[string]any {
	return item(map[string]any{
		"id":     "123",
		"desc":   "hello",
		"author": map[string]any{"uniqueId": "alice", "nickname": "Alice"},
		"video": map[string]any{
			"playAddr": "https://cdn/v.mp4",
			"width":    1080,
			"height":   1920,
			"duration": 15,
			"bitrateInfo": []any{
				map[string]any{"CodecType": "h264", "PlayAddr": map[string]any{"UrlList": []string{"https://cdn/h264.mp4"}}},
				map[string]any{"CodecType": "h265_hvc1", "PlayAddr": map[string]any{"UrlList": []string{"https://cdn/h265.mp4", "https://cdn2/h265.mp4"}}},
			},
		},
		"music": map[string]any{"playUrl": "https://cdn/music.mp3?mime_type=audio_mpeg", "title": "song", "authorName": "band"},
		"stats": map[string]any{"diggCount": 1, "shareCount": 2, "commentCount": 3, "playCount": 4},
	})
}

func photoItem() map[string]any {
	return item(map[string]any{
		"id":     "456",
		"author": map[string]any{"uniqueId": "bob"},
		"music":  map[string]any{"playUrl": "https://cdn/sound.m4a", "title": "sound"},
		"imagePost": map[string]any{"images": []any{
			map[string]any{"imageURL": map[string]any{"urlList": []string{"https://cdn/a.webp?x", "https://cdn/a.jpeg?x"}}},
			map[string]any{"imageURL": map[string]any{"urlList": []string{"https://cdn/b.webp?x"}}},
			map[string]any{"imageURL": map[string]any{"urlList": []string{"https://cdn/c.jpeg?y"}}},
		}},
	})
}

func TestResolveVideo(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, videoItem())

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "123"})
	require.NoError(t, err)

	assert.Equal(t, KindVideo, res.Kind)
	assert.Equal(t, "https://cdn/v.mp4", res.URLs)
	assert.Equal(t, "tiktok_alice_123.mp4", res.Filename)
	assert.Empty(t, res.AudioFilename)
	assert.Equal(t, "/@i/video/123", p.lastPath.Load())
	assert.Equal(t, int32(0), p.shortHits.Load())
	assert.Contains(t, res.Headers["cookie"], "ttwid=abc")
	assert.Contains(t, res.Headers["cookie"], "tt_csrf_token=tok")

	require.NotNil(t, res.Metadata)
	assert.Equal(t, "123", res.Metadata.ID)
	assert.Equal(t, "hello", *res.Metadata.Description)
	assert.Equal(t, &VideoMeta{Width: 1080, Height: 1920, Duration: 15}, res.Metadata.Video)
	assert.Equal(t, &AuthorMeta{Name: "Alice", Username: "alice"}, res.Metadata.Author)
	assert.Equal(t, &MusicMeta{Name: "song", Author: "band"}, res.Metadata.Music)
	assert.Equal(t, &StatsMeta{Likes: 1, Shares: 2, Comments: 3, Views: 4}, res.Metadata.Stats)
	assert.Equal(t, "alice", res.Author())
}

func TestResolveSessionIsPerCall(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, videoItem())
	r := p.resolver(nil)

	_, err := r.Resolve(context.Background(), Request{PostID: "123"})
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), Request{PostID: "123"})
	require.NoError(t, err)

	assert.Equal(t, "", p.lastCookie.Load(), "second call must not reuse cookies from the first")
}

func TestResolveH265(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, videoItem())

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "123", H265: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/h265.mp4", res.URLs)
	assert.Equal(t, "tiktok_alice_123.mp4", res.Filename)

	p.page = detailPage(t, item(map[string]any{
		"id":     "123",
		"author": map[string]any{"uniqueId": "alice"},
		"video":  map[string]any{"playAddr": "https://cdn/v.mp4", "bitrateInfo": []any{map[string]any{"CodecType": "h264"}}},
	}))
	res, err = p.resolver(nil).Resolve(context.Background(), Request{PostID: "123", H265: true})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/v.mp4", res.URLs)
}

func TestResolveShortLink(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, videoItem())
	p.shortBody = `<a href="https://www.tiktok.com/@alice/video/123?_t=8k&_r=1">Moved Permanently</a>.`

	res, err := p.resolver(nil).Resolve(context.Background(), Request{ShortLink: "ZSabc123"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.shortHits.Load())
	assert.Equal(t, "/@i/video/123", p.lastPath.Load())
	assert.Equal(t, "tiktok_alice_123.mp4", res.Filename)
}

func TestResolveShortLinkFailures(t *testing.T) {
	testCases := []struct {
		description string
		body        string
	}{
		{"no anchor", `<html>Not found</html>`},
		{"empty body", ``},
		{"anchor without https", `<a href="http://www.tiktok.com/@alice/video/123">`},
		{"unrecognized target", `<a href="https://www.tiktok.com/login?redirect=1">Moved</a>`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			p := newFakePlatform(t)
			p.shortBody = testCase.body

			res, err := p.resolver(nil).Resolve(context.Background(), Request{ShortLink: "ZSabc"})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, ErrFetchShortLink)
			assert.Equal(t, int32(0), p.detailHits.Load())
		})
	}

	t.Run("no reference at all", func(t *testing.T) {
		p := newFakePlatform(t)
		_, err := p.resolver(nil).Resolve(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrFetchShortLink)
	})
}

func TestResolveShortLinkTransportFailure(t *testing.T) {
	p := newFakePlatform(t)
	r := p.resolver(nil)
	closed := httptest.NewServer(http.NotFoundHandler())
	r.ShortURL = closed.URL
	closed.Close()

	_, err := r.Resolve(context.Background(), Request{ShortLink: "ZSabc"})
	assert.ErrorIs(t, err, ErrFetchFail)
}

func TestResolveDetailTransportFailure(t *testing.T) {
	p := newFakePlatform(t)
	r := p.resolver(nil)
	closed := httptest.NewServer(http.NotFoundHandler())
	r.BaseURL = closed.URL
	closed.Close()

	res, err := r.Resolve(context.Background(), Request{PostID: "123"})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrFetchFail)
	assert.Error(t, errors.Unwrap(err))
}

func TestResolveToleratesMisshapedMetadata(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, item(map[string]any{
		"id":     7312345678901234567,
		"desc":   []any{"not", "a", "string"},
		"author": map[string]any{"uniqueId": "alice"},
		"video": map[string]any{
			"playAddr":    "https://cdn/v.mp4",
			"bitrateInfo": "unexpected",
		},
		"music": "x",
		"stats": []any{},
	}))

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "7312345678901234567"})
	require.NoError(t, err)
	assert.Equal(t, KindVideo, res.Kind)
	assert.Equal(t, "https://cdn/v.mp4", res.URLs)
	require.NotNil(t, res.Metadata)
	assert.Equal(t, "7312345678901234567", res.Metadata.ID)
	assert.Nil(t, res.Metadata.Description)
	assert.Nil(t, res.Metadata.Music)
	assert.Nil(t, res.Metadata.Stats)
	require.NotNil(t, res.Metadata.Author)
	assert.Equal(t, "alice", res.Metadata.Author.Username)
}

func TestResolveDetailErrors(t *testing.T) {
	testCases := []struct {
		description string
		namespace   any
		raw         string
		want        error
	}{
		{"status message", map[string]any{"statusCode": 10204, "statusMsg": "deleted", "itemInfo": videoItem()["itemInfo"]}, "", ErrPostUnavailable},
		{"age restricted", item(map[string]any{"id": "1", "isContentClassified": true, "author": map[string]any{"uniqueId": "a"}}), "", ErrPostAgeRestricted},
		{"no author", item(map[string]any{"id": "1", "video": map[string]any{"playAddr": "https://cdn/v.mp4"}}), "", ErrFetchEmpty},
		{"no media", item(map[string]any{"id": "1", "author": map[string]any{"uniqueId": "a"}}), "", ErrFetchEmpty},
		{"captcha page", nil, `<html>verify you are human</html>`, ErrFetchFail},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			p := newFakePlatform(t)
			if testCase.raw != "" {
				p.page = testCase.raw
			} else {
				p.page = detailPage(t, testCase.namespace)
			}
			res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "1"})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, testCase.want)
		})
	}
}

func TestResolveAudio(t *testing.T) {
	t.Run("audio only uses the clip address", func(t *testing.T) {
		p := newFakePlatform(t)
		p.page = detailPage(t, item(map[string]any{
			"id":     "123",
			"author": map[string]any{"uniqueId": "alice"},
			"video":  map[string]any{"playAddr": "https://cdn/v.mp4?mime_type=audio_mpeg"},
			"music":  map[string]any{"playUrl": "https://cdn/music.m4a"},
		}))
		res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "123", IsAudioOnly: true})
		require.NoError(t, err)
		assert.Equal(t, KindAudio, res.Kind)
		assert.True(t, res.IsAudioOnly)
		assert.Equal(t, "https://cdn/v.mp4?mime_type=audio_mpeg", res.URLs)
		assert.Equal(t, "tiktok_alice_123_audio", res.AudioFilename)
		assert.Equal(t, "mp3", res.BestAudio)
	})

	t.Run("full audio always takes the music track", func(t *testing.T) {
		p := newFakePlatform(t)
		p.page = detailPage(t, videoItem())
		res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "123", IsAudioOnly: true, FullAudio: true})
		require.NoError(t, err)
		assert.Equal(t, KindAudio, res.Kind)
		assert.Equal(t, "https://cdn/music.mp3?mime_type=audio_mpeg", res.URLs)
		assert.True(t, strings.HasSuffix(res.AudioFilename, "_original"))
		assert.Equal(t, "tiktok_alice_123_audio_original", res.AudioFilename)
		assert.Equal(t, "mp3", res.BestAudio)
	})

	t.Run("missing clip address falls back to music", func(t *testing.T) {
		p := newFakePlatform(t)
		p.page = detailPage(t, item(map[string]any{
			"id":     "123",
			"author": map[string]any{"uniqueId": "alice"},
			"music":  map[string]any{"playUrl": "https://cdn/music.m4a"},
		}))
		res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "123", IsAudioOnly: true})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/music.m4a", res.URLs)
		assert.Equal(t, "tiktok_alice_123_audio_original", res.AudioFilename)
		assert.Empty(t, res.BestAudio)
		assert.Nil(t, res.Metadata.Video)
		assert.Nil(t, res.Metadata.Stats)
	})
}

func TestResolvePhotoGallery(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, photoItem())

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "456"})
	require.NoError(t, err)
	assert.Equal(t, KindPhotoGallery, res.Kind)
	assert.Equal(t, "https://cdn/sound.m4a", res.URLs)
	assert.Equal(t, "tiktok_bob_456_audio_original", res.AudioFilename)
	assert.Equal(t, []PickerItem{
		{Type: "photo", URL: "https://cdn/a.jpeg?x"},
		{Type: "photo", URL: "https://cdn/c.jpeg?y"},
	}, res.Picker)
	assert.Equal(t, "/@i/video/456", p.lastPath.Load())
}

func TestResolvePhotoGallerySingleImage(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, item(map[string]any{
		"id":     "789",
		"author": map[string]any{"uniqueId": "carol"},
		"music":  map[string]any{"playUrl": "https://cdn/sound.m4a"},
		"imagePost": map[string]any{"images": []any{
			map[string]any{"imageURL": map[string]any{"urlList": []string{"https://cdn/a.jpeg?x"}}},
		}},
	}))

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "789"})
	require.NoError(t, err)
	assert.Equal(t, KindPhotoGallery, res.Kind)
	require.Len(t, res.Picker, 1)
	assert.Equal(t, "https://cdn/a.jpeg?x", res.Picker[0].URL)
	assert.Equal(t, "https://cdn/sound.m4a", res.URLs)
}

func TestResolvePhotoGalleryProxied(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, photoItem())
	streams := &recordingStreamer{}

	res, err := p.resolver(streams).Resolve(context.Background(), Request{PostID: "456", AlwaysProxy: true})
	require.NoError(t, err)
	require.Len(t, res.Picker, 2)
	assert.Equal(t, "http://proxy.local/tunnel/tiktok_bob_456_photo_1.jpg", res.Picker[0].URL)
	assert.Equal(t, "http://proxy.local/tunnel/tiktok_bob_456_photo_3.jpg", res.Picker[1].URL)

	require.Len(t, streams.params, 2)
	assert.Equal(t, stream.Params{Service: "tiktok", Type: stream.TypeProxy, URL: "https://cdn/a.jpeg?x", Filename: "tiktok_bob_456_photo_1.jpg"}, streams.params[0])
}

func TestResolveAudioGallery(t *testing.T) {
	p := newFakePlatform(t)
	p.page = detailPage(t, photoItem())

	res, err := p.resolver(nil).Resolve(context.Background(), Request{PostID: "456", IsAudioOnly: true})
	require.NoError(t, err)
	assert.Equal(t, KindAudioGallery, res.Kind)
	assert.True(t, res.IsAudioOnly)
	assert.Nil(t, res.Picker)
	assert.Equal(t, "https://cdn/sound.m4a", res.URLs)
}

func TestFilenameBaseIsDeterministic(t *testing.T) {
	assert.Equal(t, FilenameBase("alice", "123"), FilenameBase("alice", "123"))
	assert.Equal(t, "tiktok_alice_123", FilenameBase("alice", "123"))
}

func TestShortUserAgent(t *testing.T) {
	assert.Equal(t,
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko)",
		ShortUserAgent(GenericUserAgent))
	assert.Equal(t, "curl/8.0", ShortUserAgent("curl/8.0"))
}

func TestProjectMetadataTolerant(t *testing.T) {
	meta := ProjectMetadata(&PostDetail{ID: "1", Author: &Author{UniqueID: "a"}})
	assert.Equal(t, "1", meta.ID)
	assert.Nil(t, meta.Description)
	assert.Nil(t, meta.Video)
	assert.Nil(t, meta.Music)
	assert.Nil(t, meta.Stats)
	assert.Equal(t, "a", meta.Author.Username)

	assert.NotNil(t, ProjectMetadata(nil))
}
