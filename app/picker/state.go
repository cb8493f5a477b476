package picker

import (
	"time"

	"skymock/app/models"
)

// Status is the picker's position in its state machine.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusListed   Status = "listed"
	StatusErrored  Status = "errored"
	StatusSelected Status = "selected"
)

const (
	DefaultPageSize = 5
	DefaultDebounce = time.Second

	// PostURLHost is the fragment an input must contain to be looked up.
	PostURLHost = "bsky.app"
)

// Cursor is a page position over an in-memory list.
type Cursor struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// PageCount is ceil(total / PageSize).
func (c Cursor) PageCount(total int) int {
	if c.PageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + c.PageSize - 1) / c.PageSize
}

// Clamp keeps Page within [0, PageCount-1].
func (c Cursor) Clamp(total int) Cursor {
	last := c.PageCount(total) - 1
	if c.Page > last {
		c.Page = last
	}
	if c.Page < 0 {
		c.Page = 0
	}
	return c
}

func (c Cursor) HasPrev() bool {
	return c.Page > 0
}

func (c Cursor) HasNext(total int) bool {
	return c.Page < c.PageCount(total)-1
}

// Bounds returns the [start, end) slice indexes of the current page.
func (c Cursor) Bounds(total int) (int, int) {
	if c.PageSize <= 0 {
		return 0, 0
	}
	start := c.Page * c.PageSize
	if start > total {
		start = total
	}
	end := start + c.PageSize
	if end > total {
		end = total
	}
	return start, end
}

// State is everything the picker shows. Values are replaced, never shared.
type State struct {
	Status   Status
	Handle   string
	URL      string
	Posts    []models.RawPost
	Cursor   Cursor
	Selected *models.PostData
	Error    string

	// Token is the latest request token issued. Results carrying any
	// other token are stale.
	Token uint64
}

// Initial returns an idle state with the given page size.
func Initial(pageSize int) State {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return State{Status: StatusIdle, Cursor: Cursor{PageSize: pageSize}}
}

func (s State) PageCount() int {
	return s.Cursor.PageCount(len(s.Posts))
}

func (s State) HasPrev() bool {
	return s.Cursor.HasPrev()
}

func (s State) HasNext() bool {
	return s.Cursor.HasNext(len(s.Posts))
}

// PagePosts is the slice of Posts on the current page.
func (s State) PagePosts() []models.RawPost {
	start, end := s.Cursor.Bounds(len(s.Posts))
	return s.Posts[start:end]
}
