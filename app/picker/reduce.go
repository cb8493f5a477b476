package picker

import (
	"fmt"
	"strings"
	"time"

	"skymock/app/models"
)

// Config holds the reducer's fixed parameters.
type Config struct {
	PageSize int
	Debounce time.Duration
	Location *time.Location
	// Now stamps selected posts that carry no timestamp of their own.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// LooksLikePostURL reports whether input is worth a lookup.
func LooksLikePostURL(input string) bool {
	return strings.Contains(input, PostURLHost)
}

// Reduce applies one action and returns the next state plus the effects
// the runtime must carry out. It does no I/O.
func Reduce(cfg Config, s State, a Action) (State, []Effect) {
	cfg = cfg.withDefaults()

	switch a := a.(type) {
	case FetchPosts:
		handle := strings.TrimPrefix(strings.TrimSpace(a.Handle), "@")
		if handle == "" {
			return s, []Effect{Notify{LevelError, "Please enter a Bluesky handle"}}
		}
		s.Token++
		s.Status = StatusLoading
		s.Handle = handle
		s.Error = ""
		return s, []Effect{
			Notify{LevelInfo, "Fetching posts..."},
			FetchHandle{Token: s.Token, Handle: handle},
		}

	case PostsLoaded:
		if a.Token != s.Token {
			return s, nil
		}
		if a.Result.Error != "" {
			return failed(s, "Failed to fetch posts: "+a.Result.Error)
		}
		if len(a.Result.Posts) == 0 {
			return failed(s, "No posts found for this handle")
		}
		s.Status = StatusListed
		s.Posts = a.Result.Posts
		s.Cursor = Cursor{PageSize: cfg.PageSize}
		s.Selected = nil
		s.Error = ""
		return s, []Effect{
			Notify{LevelSuccess, fmt.Sprintf("Found %d posts from @%s", len(s.Posts), s.Handle)},
		}

	case URLChanged:
		s.URL = a.URL
		if !LooksLikePostURL(a.URL) {
			return s, nil
		}
		return s, []Effect{StartDebounce{URL: a.URL, Delay: cfg.Debounce}}

	case URLSettled:
		if a.URL != s.URL || !LooksLikePostURL(a.URL) {
			return s, nil
		}
		s.Token++
		s.Status = StatusLoading
		s.Error = ""
		return s, []Effect{
			Notify{LevelInfo, "Fetching post..."},
			FetchURL{Token: s.Token, URL: strings.TrimSpace(a.URL)},
		}

	case PostLoaded:
		if a.Token != s.Token {
			return s, nil
		}
		if a.Result.Error != "" || a.Result.RawPost == nil {
			msg := a.Result.Error
			if msg == "" {
				msg = "Post not found"
			}
			return failed(s, "Failed to fetch post: "+msg)
		}
		data := models.FromRawPost(*a.Result.RawPost, cfg.Location, cfg.Now())
		return selected(s, data, "Post loaded successfully!")

	case PrevPage:
		if !browsable(s) || !s.HasPrev() {
			return s, nil
		}
		s.Cursor.Page--
		return s, nil

	case NextPage:
		if !browsable(s) || !s.HasNext() {
			return s, nil
		}
		s.Cursor.Page++
		return s, nil

	case SelectPost:
		page := s.PagePosts()
		if !browsable(s) || a.Index < 0 || a.Index >= len(page) {
			return s, nil
		}
		data := models.FromRawPost(page[a.Index], cfg.Location, cfg.Now())
		return selected(s, data, "Post selected! You can now export the image.")

	case Reset:
		next := Initial(cfg.PageSize)
		// Keep counting so in-flight results from before the reset are stale.
		next.Token = s.Token + 1
		return next, nil
	}

	return s, nil
}

// failed keeps any held list and its page so the user can carry on browsing.
func failed(s State, msg string) (State, []Effect) {
	s.Status = StatusErrored
	s.Selected = nil
	s.Error = msg
	return s, []Effect{Notify{LevelError, msg}}
}

func selected(s State, data models.PostData, msg string) (State, []Effect) {
	s.Status = StatusSelected
	s.Selected = &data
	s.Error = ""
	return s, []Effect{Render{Post: data}, Notify{LevelSuccess, msg}}
}

// browsable is true when there is a held list to page through.
func browsable(s State) bool {
	switch s.Status {
	case StatusListed, StatusSelected, StatusErrored:
		return len(s.Posts) > 0
	}
	return false
}
