package picker

import (
	"time"

	"skymock/app/models"
)

// Action is an input to Reduce.
type Action interface {
	action()
}

type FetchPosts struct {
	Handle string
}

type PostsLoaded struct {
	Token  uint64
	Result models.PostsResult
}

// URLChanged is one keystroke in the post URL box.
type URLChanged struct {
	URL string
}

// URLSettled fires once the URL box has been quiet for the debounce delay.
type URLSettled struct {
	URL string
}

type PostLoaded struct {
	Token  uint64
	Result models.PostResult
}

type PrevPage struct{}

type NextPage struct{}

// SelectPost picks a post by its index on the current page.
type SelectPost struct {
	Index int
}

type Reset struct{}

func (FetchPosts) action()  {}
func (PostsLoaded) action() {}
func (URLChanged) action()  {}
func (URLSettled) action()  {}
func (PostLoaded) action()  {}
func (PrevPage) action()    {}
func (NextPage) action()    {}
func (SelectPost) action()  {}
func (Reset) action()       {}

// Effect is work Reduce asks the runtime to perform.
type Effect interface {
	effect()
}

type FetchHandle struct {
	Token  uint64
	Handle string
}

type FetchURL struct {
	Token uint64
	URL   string
}

type StartDebounce struct {
	URL   string
	Delay time.Duration
}

// Render hands a selected post to the renderer.
type Render struct {
	Post models.PostData
}

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notify is a transient user-visible message.
type Notify struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (FetchHandle) effect()   {}
func (FetchURL) effect()      {}
func (StartDebounce) effect() {}
func (Render) effect()        {}
func (Notify) effect()        {}
