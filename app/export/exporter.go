package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"skymock/app/models"

	"github.com/disintegration/imaging"
)

var (
	ErrBusy         = errors.New("an export is already in progress")
	ErrExportFailed = errors.New("failed to export image")
)

// Size is a named card width.
type Size string

const (
	SizeDefault Size = ""
	SizeSmall   Size = "small"
	SizeMedium  Size = "medium"
	SizeLarge   Size = "large"
)

// Width is the unscaled card width for s.
func (s Size) Width() int {
	switch s {
	case SizeSmall:
		return 300
	case SizeMedium:
		return 500
	case SizeLarge:
		return 800
	default:
		return 600
	}
}

// ParseSize accepts a size name; anything unknown is the default width.
func ParseSize(s string) Size {
	switch Size(strings.ToLower(strings.TrimSpace(s))) {
	case SizeSmall:
		return SizeSmall
	case SizeMedium:
		return SizeMedium
	case SizeLarge:
		return SizeLarge
	default:
		return SizeDefault
	}
}

// Document is whatever owns the live theme the preview is drawn in.
type Document interface {
	Theme() models.Theme
	SetTheme(models.Theme)
}

// ThemeDocument is a Document that only holds a theme in memory.
type ThemeDocument struct {
	mutex sync.Mutex
	theme models.Theme
}

func NewThemeDocument(theme models.Theme) *ThemeDocument {
	return &ThemeDocument{theme: theme}
}

func (d *ThemeDocument) Theme() models.Theme {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.theme
}

func (d *ThemeDocument) SetTheme(theme models.Theme) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.theme = theme
}

// Options configures an Exporter.
type Options struct {
	Scale       int
	SettleDelay time.Duration
	Now         func() time.Time
	Location    *time.Location
}

// Result is an encoded export ready for download.
type Result struct {
	Filename    string
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// Exporter rasterizes the post shown in a Document to PNG.
type Exporter struct {
	doc    Document
	raster Rasterizer
	opts   Options
	busy   atomic.Bool
}

// NewExporter creates an Exporter for doc.
func NewExporter(doc Document, raster Rasterizer, opts Options) *Exporter {
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Exporter{doc: doc, raster: raster, opts: opts}
}

// Exporting reports whether an export is running.
func (e *Exporter) Exporting() bool {
	return e.busy.Load()
}

// Export renders data in theme and encodes it as PNG. The document theme
// is switched for the duration of the export and always restored, as is
// the busy flag.
func (e *Exporter) Export(ctx context.Context, data models.PostData, theme models.Theme, size Size) (*Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer e.busy.Store(false)

	original := e.doc.Theme()
	if theme != original {
		e.doc.SetTheme(theme)
		defer e.doc.SetTheme(original)

		if e.opts.SettleDelay > 0 {
			timer := time.NewTimer(e.opts.SettleDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w: %v", ErrExportFailed, ctx.Err())
			case <-timer.C:
			}
		}
	}

	img, err := e.raster.Rasterize(ctx, data, theme, size.Width(), e.opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExportFailed, err)
	}

	b := img.Bounds()
	return &Result{
		Filename:    Filename(data.DisplayName, e.opts.Now().In(e.opts.Location)),
		ContentType: "image/png",
		Width:       b.Dx(),
		Height:      b.Dy(),
		Data:        buf.Bytes(),
	}, nil
}

var (
	slugStrip      = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

// SlugMaxLen caps the display-name part of export filenames.
const SlugMaxLen = 20

// Slug reduces a display name to [a-z0-9_], at most SlugMaxLen long.
func Slug(displayName string) string {
	s := slugStrip.ReplaceAllString(displayName, "")
	s = slugWhitespace.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	if len(s) > SlugMaxLen {
		s = s[:SlugMaxLen]
	}
	if s == "" {
		return "post"
	}
	return s
}

// Filename names an export: bluesky_post_{slug}_{date}_{time}.png.
func Filename(displayName string, at time.Time) string {
	return fmt.Sprintf("bluesky_post_%s_%s_%s.png", Slug(displayName), at.Format("2006-01-02"), at.Format("15-04-05"))
}
