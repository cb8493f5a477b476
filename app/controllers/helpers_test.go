package controllers

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"testing"
	"time"

	"skymock/app/middleware"
	"skymock/app/models"
	"skymock/app/render"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)

type fakeFeed struct {
	mutex sync.Mutex

	posts  models.PostsResult
	post   models.PostResult
	avatar *models.Avatar
	err    error

	handles []string
	urls    []string
}

func (f *fakeFeed) FetchPostsByHandle(ctx context.Context, handle string) models.PostsResult {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.handles = append(f.handles, handle)
	return f.posts
}

func (f *fakeFeed) FetchPostByURL(ctx context.Context, url string) models.PostResult {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.urls = append(f.urls, url)
	return f.post
}

func (f *fakeFeed) ProxyAvatar(ctx context.Context, url string) (*models.Avatar, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.urls = append(f.urls, url)
	return f.avatar, f.err
}

func samplePosts(n int) []models.RawPost {
	posts := make([]models.RawPost, n)
	for i := range posts {
		posts[i] = models.RawPost{
			ID:        "at://did:plc:alice/app.bsky.feed.post/" + string(rune('a'+i)),
			Text:      "post number " + string(rune('A'+i)),
			Author:    "Alice",
			Handle:    "alice.bsky.social",
			Timestamp: fixedNow.Add(-time.Duration(i+1) * time.Hour),
			Likes:     int64(10 * i),
		}
	}
	return posts
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(time.UTC)
	require.NoError(t, err)
	r.Now = func() time.Time { return fixedNow }
	return r
}

func withSession(req *http.Request, id string) *http.Request {
	return req.WithContext(middleware.WithSessionID(req.Context(), id))
}

func solidPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
