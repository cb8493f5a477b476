package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"skymock/app/models"
	"skymock/app/repositories"

	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrInvalidPostURL = errors.New("Invalid post URL format")
	ErrMissingHandle  = errors.New("Could not extract handle from URL")
	ErrPostNotFound   = errors.New("Post not found")
	ErrInvalidAvatar  = errors.New("Avatar URL must be an absolute http(s) URL")
)

var (
	postIDPattern  = regexp.MustCompile(`/post/([^/]+)$`)
	handlePattern  = regexp.MustCompile(`profile/([^/]+)`)
	errNoPostsFeed = "No posts found"
)

// FeedOptions configures a FeedService.
type FeedOptions struct {
	Host      string
	PageSize  int64
	UserAgent string
	Timeout   time.Duration

	AvatarCache    repositories.AvatarCache
	AvatarCacheTTL time.Duration
	AvatarMaxBytes int64
}

// FeedService translates handle and post-URL lookups into public AppView
// calls and normalizes the answers into RawPost records.
type FeedService struct {
	client     *xrpc.Client
	httpClient *http.Client
	pageSize   int64
	userAgent  string

	avatars   repositories.AvatarCache
	avatarTTL time.Duration
	avatarMax int64
}

// NewFeedService creates a new FeedService
func NewFeedService(opts FeedOptions) *FeedService {
	httpClient := &http.Client{Timeout: opts.Timeout}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	avatarMax := opts.AvatarMaxBytes
	if avatarMax <= 0 {
		avatarMax = 5 << 20
	}

	client := &xrpc.Client{
		Client: httpClient,
		Host:   strings.TrimRight(opts.Host, "/"),
	}
	if opts.UserAgent != "" {
		ua := opts.UserAgent
		client.UserAgent = &ua
	}

	return &FeedService{
		client:     client,
		httpClient: httpClient,
		pageSize:   pageSize,
		userAgent:  opts.UserAgent,
		avatars:    opts.AvatarCache,
		avatarTTL:  opts.AvatarCacheTTL,
		avatarMax:  avatarMax,
	}
}

// FetchPostsByHandle returns the author's recent feed. Failures are reported
// in the result's Error field, never as a Go error.
func (s *FeedService) FetchPostsByHandle(ctx context.Context, handle string) models.PostsResult {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")

	out, err := bsky.FeedGetAuthorFeed(ctx, s.client, handle, "", "", false, s.pageSize)
	if err != nil {
		log.Printf("[feed] author feed for %s failed: %v", handle, err)
		return models.PostsResult{Posts: []models.RawPost{}, Error: upstreamError(err)}
	}
	if out == nil || out.Feed == nil {
		return models.PostsResult{Posts: []models.RawPost{}, Error: errNoPostsFeed}
	}

	posts := make([]models.RawPost, 0, len(out.Feed))
	for _, item := range out.Feed {
		if item == nil || item.Post == nil {
			continue
		}
		raw := convertPostView(item.Post)
		raw.IsRepost = item.Reason != nil && item.Reason.FeedDefs_ReasonRepost != nil
		posts = append(posts, raw)
	}

	return models.PostsResult{Posts: posts, Count: len(posts)}
}

// FetchPostByURL resolves a single post from its web URL.
func (s *FeedService) FetchPostByURL(ctx context.Context, postURL string) models.PostResult {
	handle, id, err := ParsePostURL(postURL)
	if err != nil {
		return models.PostResult{Error: err.Error()}
	}

	uri := fmt.Sprintf("at://%s/app.bsky.feed.post/%s", handle, id)
	out, err := bsky.FeedGetPostThread(ctx, s.client, 0, 0, uri)
	if err != nil {
		log.Printf("[feed] thread %s failed: %v", uri, err)
		return models.PostResult{Error: upstreamError(err)}
	}
	if out == nil || out.Thread == nil || out.Thread.FeedDefs_ThreadViewPost == nil ||
		out.Thread.FeedDefs_ThreadViewPost.Post == nil {
		return models.PostResult{Error: ErrPostNotFound.Error()}
	}

	raw := convertPostView(out.Thread.FeedDefs_ThreadViewPost.Post)
	// A post addressed by URL is never shown as someone's repost.
	raw.IsRepost = false
	return models.PostResult{RawPost: &raw}
}

// ProxyAvatar fetches avatar bytes on behalf of the browser so the preview
// can be rasterized without cross-origin taint.
func (s *FeedService) ProxyAvatar(ctx context.Context, avatarURL string) (*models.Avatar, error) {
	u, err := url.Parse(avatarURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidAvatar
	}

	key := repositories.AvatarKey(avatarURL)
	if s.avatars != nil {
		if cached, err := s.avatars.Get(key); err == nil {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch avatar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch avatar: upstream status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.avatarMax+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if int64(len(data)) > s.avatarMax {
		return nil, fmt.Errorf("avatar exceeds %s", humanize.IBytes(uint64(s.avatarMax)))
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	avatar := &models.Avatar{
		ContentType: contentType,
		Data:        data,
		FetchedAt:   time.Now(),
	}
	if s.avatars != nil {
		if err := s.avatars.Put(key, avatar, s.avatarTTL); err != nil {
			log.Printf("[feed] caching avatar failed: %v", err)
		}
	}
	log.Printf("[feed] proxied avatar %s (%s)", u.Host, humanize.Bytes(uint64(len(data))))
	return avatar, nil
}

// ParsePostURL extracts the handle and record key from a URL shaped like
// https://bsky.app/profile/{handle}/post/{id}.
func ParsePostURL(postURL string) (handle, id string, err error) {
	postURL = strings.TrimSpace(postURL)
	m := postIDPattern.FindStringSubmatch(postURL)
	if m == nil {
		return "", "", ErrInvalidPostURL
	}
	h := handlePattern.FindStringSubmatch(postURL)
	if h == nil {
		return "", "", ErrMissingHandle
	}
	return h[1], m[1], nil
}

func convertPostView(post *bsky.FeedDefs_PostView) models.RawPost {
	raw := models.RawPost{
		ID:     post.Uri,
		Images: []string{},
	}

	if post.Record != nil {
		if record, ok := post.Record.Val.(*bsky.FeedPost); ok {
			raw.Text = record.Text
			raw.IsReply = record.Reply != nil
		}
	}

	if post.Author != nil {
		raw.Handle = post.Author.Handle
		raw.Author = derefString(post.Author.DisplayName)
		if raw.Author == "" {
			raw.Author = post.Author.Handle
		}
		raw.Avatar = derefString(post.Author.Avatar)
	}

	if ts, err := time.Parse(time.RFC3339, post.IndexedAt); err == nil {
		raw.Timestamp = ts
	}

	raw.Likes = derefInt(post.LikeCount)
	raw.Reposts = derefInt(post.RepostCount)
	raw.Replies = derefInt(post.ReplyCount)
	raw.Images = embedImages(post.Embed)

	return raw
}

func embedImages(embed *bsky.FeedDefs_PostView_Embed) []string {
	images := []string{}
	if embed == nil {
		return images
	}

	view := embed.EmbedImages_View
	if view == nil && embed.EmbedRecordWithMedia_View != nil && embed.EmbedRecordWithMedia_View.Media != nil {
		view = embed.EmbedRecordWithMedia_View.Media.EmbedImages_View
	}
	if view == nil {
		return images
	}

	for _, img := range view.Images {
		if img != nil && img.Fullsize != "" {
			images = append(images, img.Fullsize)
		}
	}
	return images
}

// upstreamError turns a transport or xrpc failure into the message callers see.
func upstreamError(err error) string {
	var xerr *xrpc.Error
	if errors.As(err, &xerr) {
		return fmt.Sprintf("Bluesky API error: %d", xerr.StatusCode)
	}
	return err.Error()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
