package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	ShortTimeLayout = "15:04"

	unknownAuthor = "Unknown User"
	unknownHandle = "unknown.bsky.social"
)

var ErrNoTimestamp = errors.New("date and time are required")

// ParsePostType maps free input to a PostType, defaulting to a plain post.
func ParsePostType(s string) PostType {
	switch PostType(strings.ToLower(strings.TrimSpace(s))) {
	case PostTypeRepost:
		return PostTypeRepost
	case PostTypeReply:
		return PostTypeReply
	default:
		return PostTypePost
	}
}

// ParseTheme maps free input to a Theme. Anything but "dark" is light.
func ParseTheme(s string) Theme {
	if strings.EqualFold(strings.TrimSpace(s), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

// Toggle returns the opposite theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// Validate checks the post data against its field constraints.
func (p *PostData) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if p.Time != "" {
		if _, err := parseClock(p.Time); err != nil {
			return fmt.Errorf("invalid time %q: %w", p.Time, err)
		}
	}
	return nil
}

// Normalize fills the post type when it is missing.
func (p *PostData) Normalize() {
	p.PostType = ParsePostType(string(p.PostType))
}

// Timestamp combines Date and Time in loc.
func (p PostData) Timestamp(loc *time.Location) (time.Time, error) {
	if p.Date == "" || p.Time == "" {
		return time.Time{}, ErrNoTimestamp
	}
	if loc == nil {
		loc = time.Local
	}
	layout := DateLayout + "T" + TimeLayout
	clock := p.Time
	if len(clock) == len(ShortTimeLayout) {
		layout = DateLayout + "T" + ShortTimeLayout
	}
	return time.ParseInLocation(layout, p.Date+"T"+clock, loc)
}

// FromRawPost converts a fetched post into render input. Only the first
// image is kept; PostData carries a single image slot.
func FromRawPost(raw RawPost, loc *time.Location, now time.Time) PostData {
	if loc == nil {
		loc = time.Local
	}
	postType := PostTypePost
	if raw.IsRepost {
		postType = PostTypeRepost
	} else if raw.IsReply {
		postType = PostTypeReply
	}

	author := raw.Author
	if author == "" {
		author = unknownAuthor
	}
	handle := raw.Handle
	if handle == "" {
		handle = unknownHandle
	}

	var image string
	if len(raw.Images) > 0 {
		image = raw.Images[0]
	}

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = now
	}
	ts = ts.In(loc)

	return PostData{
		PostType:    postType,
		DisplayName: author,
		Handle:      "@" + handle,
		Avatar:      raw.Avatar,
		Content:     raw.Text,
		PostImage:   image,
		Reposts:     raw.Reposts,
		Likes:       raw.Likes,
		Replies:     raw.Replies,
		Date:        ts.Format(DateLayout),
		Time:        ts.Format(TimeLayout),
	}
}

func parseClock(s string) (time.Time, error) {
	if len(s) == len(ShortTimeLayout) {
		return time.Parse(ShortTimeLayout, s)
	}
	return time.Parse(TimeLayout, s)
}
