package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"skymock/app/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	// PlaceholderAuthor and PlaceholderHandle attribute the inner block of
	// a repost and the target of a reply; the original author is not tracked.
	PlaceholderAuthor = "Original Author"
	PlaceholderHandle = "@original.bsky.social"

	// ListTextLimit is how many characters of a post the picker list shows.
	ListTextLimit = 100

	legacyDefaultAvatar = "assets/default-avatar.png"
)

// Renderer turns PostData into preview markup. It holds no per-post state.
type Renderer struct {
	templates *template.Template
	loc       *time.Location

	// Now is the reference instant for relative timestamps.
	Now func() time.Time
}

// postView is what the post templates see.
type postView struct {
	models.PostData
	When        string
	Body        template.HTML
	ShowAvatar  bool
	AvatarSrc   interface{}
	ImageSrc    interface{}
	Placeholder struct {
		Author string
		Handle string
	}
}

type listItem struct {
	Index   int
	Text    string
	Kind    string
	When    string
	Likes   int64
	Reposts int64
	Replies int64
}

// New parses the embedded templates.
func New(loc *time.Location) (*Renderer, error) {
	if loc == nil {
		loc = time.Local
	}
	funcs := template.FuncMap{
		"compact": CompactNumber,
	}
	tmpl, err := template.New("render").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{templates: tmpl, loc: loc, Now: time.Now}, nil
}

// Render produces the preview markup for one post. The variant is chosen
// by PostType; an unknown type renders as a plain post.
func (r *Renderer) Render(data models.PostData) (template.HTML, error) {
	view := postView{
		PostData:   data,
		When:       r.timestamp(data),
		Body:       FormatContent(data.Content),
		ShowAvatar: HasAvatar(data.Avatar),
		AvatarSrc:  imageSource(data.Avatar),
		ImageSrc:   imageSource(data.PostImage),
	}
	view.Placeholder.Author = PlaceholderAuthor
	view.Placeholder.Handle = PlaceholderHandle

	name := "post"
	switch models.ParsePostType(string(data.PostType)) {
	case models.PostTypeRepost:
		name = "repost"
	case models.PostTypeReply:
		name = "reply"
	}
	return r.execute(name, view)
}

// RenderList produces the picker's list items for one page of posts.
func (r *Renderer) RenderList(posts []models.RawPost) (template.HTML, error) {
	now := r.Now()
	items := make([]listItem, 0, len(posts))
	for i, p := range posts {
		item := listItem{
			Index:   i,
			Text:    Truncate(p.Text, ListTextLimit),
			When:    RelativeTime(now, p.Timestamp.In(r.loc)),
			Likes:   p.Likes,
			Reposts: p.Reposts,
			Replies: p.Replies,
		}
		if p.IsRepost {
			item.Kind = "Repost"
		} else if p.IsReply {
			item.Kind = "Reply"
		}
		items = append(items, item)
	}
	return r.execute("list", items)
}

func (r *Renderer) timestamp(data models.PostData) string {
	return DisplayTime(data, r.loc, r.Now())
}

func (r *Renderer) execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
