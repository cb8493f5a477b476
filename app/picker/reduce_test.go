package picker

import (
	"fmt"
	"testing"
	"time"

	"skymock/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		PageSize: 5,
		Debounce: time.Second,
		Location: time.UTC,
		Now:      func() time.Time { return testNow },
	}
}

func makePosts(n int) []models.RawPost {
	posts := make([]models.RawPost, n)
	for i := range posts {
		posts[i] = models.RawPost{
			ID:        fmt.Sprintf("at://did:plc:alice/app.bsky.feed.post/%d", i),
			Text:      fmt.Sprintf("post %d", i),
			Author:    "Alice",
			Handle:    "alice.bsky.social",
			Timestamp: testNow.Add(-time.Duration(i) * time.Hour),
			Likes:     int64(i),
			Images:    []string{},
		}
	}
	return posts
}

func listedState(t *testing.T, n int) State {
	t.Helper()
	cfg := testConfig()
	s, _ := Reduce(cfg, Initial(cfg.PageSize), FetchPosts{Handle: "alice.bsky.social"})
	s, _ = Reduce(cfg, s, PostsLoaded{Token: s.Token, Result: models.PostsResult{Posts: makePosts(n), Count: n}})
	require.Equal(t, StatusListed, s.Status)
	return s
}

func TestCursor(t *testing.T) {
	c := Cursor{PageSize: 5}
	assert.Equal(t, 3, c.PageCount(12))
	assert.Equal(t, 2, c.PageCount(10))
	assert.Equal(t, 0, c.PageCount(0))
	assert.Equal(t, 0, Cursor{}.PageCount(12))

	assert.Equal(t, 2, Cursor{Page: 9, PageSize: 5}.Clamp(12).Page)
	assert.Equal(t, 0, Cursor{Page: -3, PageSize: 5}.Clamp(12).Page)
	assert.Equal(t, 0, Cursor{Page: 4, PageSize: 5}.Clamp(0).Page)

	start, end := Cursor{Page: 2, PageSize: 5}.Bounds(12)
	assert.Equal(t, 10, start)
	assert.Equal(t, 12, end)

	assert.False(t, Cursor{Page: 0, PageSize: 5}.HasPrev())
	assert.True(t, Cursor{Page: 1, PageSize: 5}.HasPrev())
	assert.True(t, Cursor{Page: 1, PageSize: 5}.HasNext(12))
	assert.False(t, Cursor{Page: 2, PageSize: 5}.HasNext(12))
}

func TestPagination(t *testing.T) {
	cfg := testConfig()
	s := listedState(t, 12)

	assert.Equal(t, 3, s.PageCount())
	assert.False(t, s.HasPrev())
	assert.True(t, s.HasNext())

	s, effects := Reduce(cfg, s, PrevPage{})
	assert.Equal(t, 0, s.Cursor.Page, "prev on first page is a no-op")
	assert.Empty(t, effects)

	s, _ = Reduce(cfg, s, NextPage{})
	s, _ = Reduce(cfg, s, NextPage{})
	assert.Equal(t, 2, s.Cursor.Page)
	assert.Len(t, s.PagePosts(), 2)
	assert.False(t, s.HasNext())

	s, _ = Reduce(cfg, s, NextPage{})
	assert.Equal(t, 2, s.Cursor.Page, "next on last page is a no-op")

	s, _ = Reduce(cfg, s, PrevPage{})
	assert.Equal(t, 1, s.Cursor.Page)
	assert.Equal(t, "post 5", s.PagePosts()[0].Text)
}

func TestPaginationOutsideList(t *testing.T) {
	cfg := testConfig()
	s := Initial(5)

	s, _ = Reduce(cfg, s, NextPage{})
	assert.Equal(t, 0, s.Cursor.Page)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.PagePosts())
}

func TestFetchPosts(t *testing.T) {
	cfg := testConfig()

	t.Run("Blank handle", func(t *testing.T) {
		s := Initial(5)
		next, effects := Reduce(cfg, s, FetchPosts{Handle: "   "})
		assert.Equal(t, s, next)
		assert.Equal(t, []Effect{Notify{LevelError, "Please enter a Bluesky handle"}}, effects)
	})

	t.Run("Starts a fetch with a new token", func(t *testing.T) {
		s, effects := Reduce(cfg, Initial(5), FetchPosts{Handle: " @alice.bsky.social "})
		assert.Equal(t, StatusLoading, s.Status)
		assert.Equal(t, uint64(1), s.Token)
		assert.Equal(t, "alice.bsky.social", s.Handle)
		assert.Equal(t, []Effect{
			Notify{LevelInfo, "Fetching posts..."},
			FetchHandle{Token: 1, Handle: "alice.bsky.social"},
		}, effects)
	})

	t.Run("Results land in listed", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "alice.bsky.social"})
		s, effects := Reduce(cfg, s, PostsLoaded{Token: 1, Result: models.PostsResult{Posts: makePosts(12), Count: 12}})
		assert.Equal(t, StatusListed, s.Status)
		assert.Len(t, s.Posts, 12)
		assert.Equal(t, 0, s.Cursor.Page)
		assert.Equal(t, []Effect{Notify{LevelSuccess, "Found 12 posts from @alice.bsky.social"}}, effects)
	})

	t.Run("Upstream error", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "alice.bsky.social"})
		s, effects := Reduce(cfg, s, PostsLoaded{Token: 1, Result: models.PostsResult{Posts: []models.RawPost{}, Error: "Bluesky API error: 400"}})
		assert.Equal(t, StatusErrored, s.Status)
		assert.Equal(t, "Failed to fetch posts: Bluesky API error: 400", s.Error)
		assert.Equal(t, []Effect{Notify{LevelError, "Failed to fetch posts: Bluesky API error: 400"}}, effects)
	})

	t.Run("Empty result", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "alice.bsky.social"})
		s, _ = Reduce(cfg, s, PostsLoaded{Token: 1, Result: models.PostsResult{Posts: []models.RawPost{}}})
		assert.Equal(t, StatusErrored, s.Status)
		assert.Equal(t, "No posts found for this handle", s.Error)
	})

	t.Run("Errored can fetch again", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "a"})
		s, _ = Reduce(cfg, s, PostsLoaded{Token: 1, Result: models.PostsResult{}})
		s, _ = Reduce(cfg, s, FetchPosts{Handle: "b"})
		assert.Equal(t, StatusLoading, s.Status)
		assert.Equal(t, uint64(2), s.Token)
	})
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	cfg := testConfig()
	s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "slow"})
	s, _ = Reduce(cfg, s, FetchPosts{Handle: "fast"})
	require.Equal(t, uint64(2), s.Token)

	s, _ = Reduce(cfg, s, PostsLoaded{Token: 2, Result: models.PostsResult{Posts: makePosts(3)}})
	require.Equal(t, StatusListed, s.Status)

	next, effects := Reduce(cfg, s, PostsLoaded{Token: 1, Result: models.PostsResult{Error: "late failure"}})
	assert.Equal(t, s, next)
	assert.Empty(t, effects)

	next, effects = Reduce(cfg, s, PostLoaded{Token: 1, Result: models.PostResult{RawPost: &makePosts(1)[0]}})
	assert.Equal(t, s, next)
	assert.Empty(t, effects)
}

func TestURLFlow(t *testing.T) {
	cfg := testConfig()
	url := "https://bsky.app/profile/alice.bsky.social/post/abc123"

	t.Run("Non post input is only recorded", func(t *testing.T) {
		s, effects := Reduce(cfg, Initial(5), URLChanged{URL: "https://example.com"})
		assert.Equal(t, "https://example.com", s.URL)
		assert.Empty(t, effects)
	})

	t.Run("Post input starts the debounce", func(t *testing.T) {
		_, effects := Reduce(cfg, Initial(5), URLChanged{URL: url})
		assert.Equal(t, []Effect{StartDebounce{URL: url, Delay: time.Second}}, effects)
	})

	t.Run("Settling on an outdated value does nothing", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), URLChanged{URL: url})
		s, _ = Reduce(cfg, s, URLChanged{URL: url + "x"})
		next, effects := Reduce(cfg, s, URLSettled{URL: url})
		assert.Equal(t, s, next)
		assert.Empty(t, effects)
	})

	t.Run("Settled URL is fetched and selected", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), URLChanged{URL: url})
		s, effects := Reduce(cfg, s, URLSettled{URL: url})
		assert.Equal(t, StatusLoading, s.Status)
		assert.Equal(t, []Effect{Notify{LevelInfo, "Fetching post..."}, FetchURL{Token: 1, URL: url}}, effects)

		raw := makePosts(1)[0]
		raw.Images = []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}
		raw.IsReply = true
		s, effects = Reduce(cfg, s, PostLoaded{Token: 1, Result: models.PostResult{RawPost: &raw}})

		assert.Equal(t, StatusSelected, s.Status)
		require.NotNil(t, s.Selected)
		assert.Equal(t, models.PostTypeReply, s.Selected.PostType)
		assert.Equal(t, "https://cdn.example/1.jpg", s.Selected.PostImage)
		assert.Equal(t, "@alice.bsky.social", s.Selected.Handle)
		require.Len(t, effects, 2)
		assert.Equal(t, Render{Post: *s.Selected}, effects[0])
		assert.Equal(t, Notify{LevelSuccess, "Post loaded successfully!"}, effects[1])
	})

	t.Run("Lookup failure", func(t *testing.T) {
		s, _ := Reduce(cfg, Initial(5), URLChanged{URL: url})
		s, _ = Reduce(cfg, s, URLSettled{URL: url})
		s, effects := Reduce(cfg, s, PostLoaded{Token: 1, Result: models.PostResult{Error: "Post not found"}})
		assert.Equal(t, StatusErrored, s.Status)
		assert.Equal(t, []Effect{Notify{LevelError, "Failed to fetch post: Post not found"}}, effects)
	})

	t.Run("Lookup failure keeps the list", func(t *testing.T) {
		s := listedState(t, 12)
		s, _ = Reduce(cfg, s, NextPage{})
		s, _ = Reduce(cfg, s, URLChanged{URL: url})
		s, _ = Reduce(cfg, s, URLSettled{URL: url})
		s, _ = Reduce(cfg, s, PostLoaded{Token: s.Token, Result: models.PostResult{Error: "Post not found"}})

		assert.Equal(t, StatusErrored, s.Status)
		assert.Len(t, s.Posts, 12)
		assert.Equal(t, 1, s.Cursor.Page)
		assert.Nil(t, s.Selected)

		s, _ = Reduce(cfg, s, NextPage{})
		assert.Equal(t, 2, s.Cursor.Page)
		s, effects := Reduce(cfg, s, SelectPost{Index: 0})
		require.Equal(t, StatusSelected, s.Status)
		assert.Equal(t, "post 10", s.Selected.Content)
		assert.Len(t, effects, 2)
	})
}

func TestSelectPost(t *testing.T) {
	cfg := testConfig()
	s := listedState(t, 12)
	s, _ = Reduce(cfg, s, NextPage{})

	s, effects := Reduce(cfg, s, SelectPost{Index: 2})
	require.Equal(t, StatusSelected, s.Status)
	require.NotNil(t, s.Selected)
	assert.Equal(t, "post 7", s.Selected.Content)
	assert.Equal(t, models.PostTypePost, s.Selected.PostType)
	assert.Equal(t, int64(7), s.Selected.Likes)
	assert.Equal(t, "2024-01-15", s.Selected.Date)
	assert.Equal(t, "05:00:00", s.Selected.Time)
	assert.Equal(t, []Effect{
		Render{Post: *s.Selected},
		Notify{LevelSuccess, "Post selected! You can now export the image."},
	}, effects)

	// The list stays available after a selection.
	assert.Len(t, s.Posts, 12)
	s, _ = Reduce(cfg, s, NextPage{})
	assert.Equal(t, 2, s.Cursor.Page)

	next, effects := Reduce(cfg, s, SelectPost{Index: 2})
	assert.Equal(t, s, next, "index past the end of a short page")
	assert.Empty(t, effects)

	next, _ = Reduce(cfg, s, SelectPost{Index: -1})
	assert.Equal(t, s, next)
}

func TestReset(t *testing.T) {
	cfg := testConfig()
	s, _ := Reduce(cfg, Initial(5), FetchPosts{Handle: "alice"})
	pending := s.Token

	s, effects := Reduce(cfg, s, Reset{})
	assert.Empty(t, effects)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.Posts)
	assert.Greater(t, s.Token, pending)

	next, _ := Reduce(cfg, s, PostsLoaded{Token: pending, Result: models.PostsResult{Posts: makePosts(2)}})
	assert.Equal(t, s, next, "a fetch from before the reset is stale")
}

func TestLooksLikePostURL(t *testing.T) {
	assert.True(t, LooksLikePostURL("https://bsky.app/profile/a/post/b"))
	assert.True(t, LooksLikePostURL("bsky.app"))
	assert.False(t, LooksLikePostURL("https://example.com/post/1"))
	assert.False(t, LooksLikePostURL(""))
}
