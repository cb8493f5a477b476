package export

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"skymock/app/models"
	"skymock/app/render"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Card layout, in unscaled pixels.
const (
	padding    = 16
	avatarSize = 48
	gutter     = 12
	lineHeight = 18
	headerH    = 3 * lineHeight
	sectionGap = 8
)

var face = basicfont.Face7x13

// missingGlyph stands in for runes the bitmap font cannot draw.
const missingGlyph = '?'

var (
	lightBackground = color.NRGBA{0xff, 0xff, 0xff, 0xff}
	darkBackground  = color.NRGBA{0x11, 0x18, 0x27, 0xff}
)

type palette struct {
	background  color.NRGBA
	primary     color.NRGBA
	secondary   color.NRGBA
	border      color.NRGBA
	placeholder color.NRGBA
}

func paletteFor(theme models.Theme) palette {
	if theme == models.ThemeDark {
		return palette{
			background:  darkBackground,
			primary:     color.NRGBA{0xf9, 0xfa, 0xfb, 0xff},
			secondary:   color.NRGBA{0x9c, 0xa3, 0xaf, 0xff},
			border:      color.NRGBA{0x37, 0x41, 0x51, 0xff},
			placeholder: color.NRGBA{0x4b, 0x55, 0x63, 0xff},
		}
	}
	return palette{
		background:  lightBackground,
		primary:     color.NRGBA{0x11, 0x18, 0x27, 0xff},
		secondary:   color.NRGBA{0x6b, 0x72, 0x80, 0xff},
		border:      color.NRGBA{0xe5, 0xe7, 0xeb, 0xff},
		placeholder: color.NRGBA{0xd1, 0xd5, 0xdb, 0xff},
	}
}

// layout is the card geometry at a given scale.
type layout struct {
	scale   int
	padding int
	avatar  int
	gutter  int
	line    int
	header  int
	gap     int
}

func newLayout(scale int) layout {
	if scale < 1 {
		scale = 1
	}
	return layout{
		scale:   scale,
		padding: padding * scale,
		avatar:  avatarSize * scale,
		gutter:  gutter * scale,
		line:    lineHeight * scale,
		header:  headerH * scale,
		gap:     sectionGap * scale,
	}
}

// Rasterizer draws a post for a given unscaled card width. The image is
// width*scale pixels wide.
type Rasterizer interface {
	Rasterize(ctx context.Context, data models.PostData, theme models.Theme, width, scale int) (image.Image, error)
}

// CardRasterizer draws the post card directly from PostData with a
// bitmap font, mirroring the preview layout.
type CardRasterizer struct {
	loader ImageLoader
	loc    *time.Location
	now    func() time.Time
}

// NewCardRasterizer creates a CardRasterizer. loader may be nil, in which
// case no images are drawn.
func NewCardRasterizer(loader ImageLoader, loc *time.Location, now func() time.Time) *CardRasterizer {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &CardRasterizer{loader: loader, loc: loc, now: now}
}

// Rasterize lays out and draws the card. Images are resampled from their
// source at the final scale; only the bitmap text is enlarged.
func (c *CardRasterizer) Rasterize(ctx context.Context, data models.PostData, theme models.Theme, width, scale int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := newLayout(scale)
	postType := models.ParsePostType(string(data.PostType))
	pal := paletteFor(theme)

	avatar := c.load(ctx, data.Avatar, render.HasAvatar(data.Avatar))
	if avatar != nil {
		avatar = imaging.Fill(avatar, l.avatar, l.avatar, imaging.Center, imaging.Lanczos)
	}
	postImage := c.load(ctx, data.PostImage, data.PostImage != "")
	if postImage != nil {
		postImage = scaleToWidth(postImage, (width-2*padding)*l.scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lines := wrap(printable(data.Content), (width-2*padding)/face.Advance)
	when := render.DisplayTime(data, c.loc, c.now())

	// Measure.
	height := l.padding
	if postType == models.PostTypeReply {
		height += l.line + l.gap
	}
	height += l.header + l.gap
	if postType == models.PostTypeRepost {
		height += l.line + l.header + l.gap
	}
	if len(lines) > 0 {
		height += len(lines)*l.line + l.gap
	}
	if postImage != nil {
		height += postImage.Bounds().Dy() + l.gap
	}
	height += l.line + l.padding

	canvas := image.NewNRGBA(image.Rect(0, 0, width*l.scale, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(pal.background), image.Point{}, draw.Src)

	// Draw.
	y := l.padding
	if postType == models.PostTypeReply {
		l.text(canvas, l.padding, y, "Replying to "+render.PlaceholderHandle, pal.secondary)
		y += l.line + l.gap
	}

	l.header3(canvas, y, avatar, data.DisplayName, data.Handle, when, pal)
	y += l.header + l.gap

	if postType == models.PostTypeRepost {
		l.text(canvas, l.padding, y, "Reposted", pal.secondary)
		y += l.line
		l.header3(canvas, y, nil, render.PlaceholderAuthor, render.PlaceholderHandle, when, pal)
		y += l.header + l.gap
	}

	for _, line := range lines {
		l.text(canvas, l.padding, y, line, pal.primary)
		y += l.line
	}
	if len(lines) > 0 {
		y += l.gap
	}

	if postImage != nil {
		draw.Draw(canvas, postImage.Bounds().Add(image.Pt(l.padding, y)), postImage, postImage.Bounds().Min, draw.Over)
		y += postImage.Bounds().Dy() + l.gap
	}

	l.text(canvas, l.padding, y, metricsLine(data), pal.secondary)

	// Card border.
	strokeRect(canvas, canvas.Bounds(), pal.border, l.scale)

	return canvas, nil
}

// load resolves src, logging and returning nil on failure so that a broken
// image never fails the whole card.
func (c *CardRasterizer) load(ctx context.Context, src string, wanted bool) image.Image {
	if !wanted || c.loader == nil {
		return nil
	}
	img, err := c.loader.Load(ctx, src)
	if err != nil {
		log.Printf("[export] image %s skipped: %v", shorten(src), err)
		return nil
	}
	return img
}

// header3 draws the avatar next to the three header lines.
func (l layout) header3(dst *image.NRGBA, y int, avatar image.Image, name, handle, when string, pal palette) {
	l.drawAvatar(dst, l.padding, y, avatar, pal)
	x := l.padding + l.avatar + l.gutter
	l.text(dst, x, y, name, pal.primary)
	l.text(dst, x, y+l.line, handle, pal.secondary)
	l.text(dst, x, y+2*l.line, when, pal.secondary)
}

func metricsLine(data models.PostData) string {
	return "Reposts " + render.CompactNumber(data.Reposts) +
		"    Likes " + render.CompactNumber(data.Likes) +
		"    Replies " + render.CompactNumber(data.Replies)
}

// text writes s with its top-left corner at (x, y). Above 1x the glyphs
// are drawn once at their native size and enlarged without smoothing.
func (l layout) text(dst draw.Image, x, y int, s string, c color.Color) {
	s = printable(s)
	if l.scale == 1 {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(x, y+face.Ascent),
		}
		d.DrawString(s)
		return
	}

	w := font.MeasureString(face, s).Ceil()
	if w == 0 {
		return
	}
	glyphs := image.NewNRGBA(image.Rect(0, 0, w, face.Ascent+face.Descent))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)

	big := imaging.Resize(glyphs, w*l.scale, glyphs.Bounds().Dy()*l.scale, imaging.NearestNeighbor)
	draw.Draw(dst, big.Bounds().Add(image.Pt(x, y)), big, image.Point{}, draw.Over)
}

// printable swaps runes the bitmap font has no glyph for, such as emoji,
// for missingGlyph. Variation selectors and joiners are dropped.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\u200d' || (r >= '\ufe00' && r <= '\ufe0f'):
			return -1
		case hasGlyph(r):
			return r
		}
		return missingGlyph
	}, s)
}

func hasGlyph(r rune) bool {
	for _, rng := range face.Ranges {
		if r >= rng.Low && r < rng.High {
			return true
		}
	}
	return false
}

// drawAvatar paints img, or the placeholder glyph, clipped to a circle.
func (l layout) drawAvatar(dst *image.NRGBA, x, y int, img image.Image, pal palette) {
	r := l.avatar / 2
	cx, cy := x+r, y+r
	mask := &circle{center: image.Pt(cx, cy), radius: r}
	rect := image.Rect(x, y, x+l.avatar, y+l.avatar)

	if img != nil {
		draw.DrawMask(dst, rect, img, img.Bounds().Min, mask, rect.Min, draw.Over)
		return
	}

	draw.DrawMask(dst, rect, image.NewUniform(pal.placeholder), image.Point{}, mask, rect.Min, draw.Over)
	// Head and shoulders.
	head := &circle{center: image.Pt(cx, cy-6*l.scale), radius: 9 * l.scale}
	draw.DrawMask(dst, rect, image.NewUniform(pal.secondary), image.Point{}, head, rect.Min, draw.Over)
	body := &intersection{a: mask, b: &circle{center: image.Pt(cx, cy+20*l.scale), radius: 16 * l.scale}}
	draw.DrawMask(dst, rect, image.NewUniform(pal.secondary), image.Point{}, body, rect.Min, draw.Over)
}

func strokeRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA, width int) {
	for i := 0; i < width; i++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			dst.SetNRGBA(x, r.Min.Y+i, c)
			dst.SetNRGBA(x, r.Max.Y-1-i, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			dst.SetNRGBA(r.Min.X+i, y, c)
			dst.SetNRGBA(r.Max.X-1-i, y, c)
		}
	}
}

func scaleToWidth(img image.Image, width int) image.Image {
	if img.Bounds().Dx() == width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// wrap breaks text into lines of at most cols characters, keeping explicit
// newlines and splitting words that are longer than a line.
func wrap(text string, cols int) []string {
	if text == "" || cols <= 0 {
		return nil
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for utf8.RuneCountInString(word) > cols {
				if line != "" {
					lines = append(lines, line)
					line = ""
				}
				runes := []rune(word)
				lines = append(lines, string(runes[:cols]))
				word = string(runes[cols:])
			}
			switch {
			case line == "":
				line = word
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= cols:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func shorten(src string) string {
	if len(src) > 48 {
		return src[:48] + "..."
	}
	return src
}

// circle is an alpha mask that is opaque inside the circle.
type circle struct {
	center image.Point
	radius int
}

func (c *circle) ColorModel() color.Model { return color.AlphaModel }

func (c *circle) Bounds() image.Rectangle {
	return image.Rect(c.center.X-c.radius, c.center.Y-c.radius, c.center.X+c.radius, c.center.Y+c.radius)
}

func (c *circle) At(x, y int) color.Color {
	xx, yy, rr := float64(x-c.center.X)+0.5, float64(y-c.center.Y)+0.5, float64(c.radius)
	if xx*xx+yy*yy < rr*rr {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// intersection is opaque where both masks are.
type intersection struct {
	a, b image.Image
}

func (m *intersection) ColorModel() color.Model { return color.AlphaModel }

func (m *intersection) Bounds() image.Rectangle { return m.a.Bounds().Intersect(m.b.Bounds()) }

func (m *intersection) At(x, y int) color.Color {
	_, _, _, a1 := m.a.At(x, y).RGBA()
	_, _, _, a2 := m.b.At(x, y).RGBA()
	if a1 > 0 && a2 > 0 {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
