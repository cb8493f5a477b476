package models

import "time"

// PostType selects the wrapper chrome a post is rendered with.
type PostType string

const (
	PostTypePost   PostType = "post"
	PostTypeRepost PostType = "repost"
	PostTypeReply  PostType = "reply"
)

// Theme is the light/dark document theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// PostData is the canonical render input, produced either by the compose
// form or by a post selected from the feed.
type PostData struct {
	PostType    PostType `json:"postType" validate:"omitempty,oneof=post repost reply"`
	DisplayName string   `json:"displayName" validate:"max=640"`
	Handle      string   `json:"handle" validate:"max=253"`
	Avatar      string   `json:"avatar"`
	Content     string   `json:"content"`
	PostImage   string   `json:"postImage"`
	Reposts     int64    `json:"reposts" validate:"gte=0"`
	Likes       int64    `json:"likes" validate:"gte=0"`
	Replies     int64    `json:"replies" validate:"gte=0"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time        string   `json:"time"`
}

// RawPost is a feed entry normalized from the upstream JSON.
type RawPost struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	Handle    string    `json:"handle"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int64     `json:"likes"`
	Reposts   int64     `json:"reposts"`
	Replies   int64     `json:"replies"`
	Avatar    string    `json:"avatar"`
	Images    []string  `json:"images"`
	IsRepost  bool      `json:"isRepost"`
	IsReply   bool      `json:"isReply"`
}

// PostsResult is the soft result of a handle lookup. A non-empty Error is
// the failure signal; Posts is then empty but present.
type PostsResult struct {
	Posts []RawPost `json:"posts"`
	Count int       `json:"count"`
	Error string    `json:"error,omitempty"`
}

// PostResult is the soft result of a single post lookup.
type PostResult struct {
	*RawPost
	Error string `json:"error,omitempty"`
}

// Avatar is a proxied image body.
type Avatar struct {
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
	FetchedAt   time.Time `json:"fetched_at"`
}
