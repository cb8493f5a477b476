package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var ErrNoInitials = errors.New("display name has no initials")

var (
	gradientFrom = color.NRGBA{R: 0x1d, G: 0xa1, B: 0xf2, A: 0xff}
	gradientTo   = color.NRGBA{R: 0x0d, G: 0x8b, B: 0xd9, A: 0xff}
)

const glyphScale = 6

// Initials takes the first letter of up to the first two words.
func Initials(displayName string) string {
	var b strings.Builder
	n := 0
	for _, word := range strings.Fields(displayName) {
		if n == 2 {
			break
		}
		r := []rune(word)[0]
		b.WriteRune(unicode.ToUpper(r))
		n++
	}
	return b.String()
}

// InitialsAvatar draws a square avatar with the name's initials on a
// diagonal gradient and returns it as a PNG.
func InitialsAvatar(displayName string) (*Image, error) {
	initials := Initials(displayName)
	if initials == "" {
		return nil, ErrNoInitials
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, AvatarSize, AvatarSize))
	span := float64(2 * (AvatarSize - 1))
	for y := 0; y < AvatarSize; y++ {
		for x := 0; x < AvatarSize; x++ {
			canvas.SetNRGBA(x, y, lerp(gradientFrom, gradientTo, float64(x+y)/span))
		}
	}

	glyphs := drawText(initials, color.White)
	glyphs = imaging.Resize(glyphs, glyphs.Bounds().Dx()*glyphScale, glyphs.Bounds().Dy()*glyphScale, imaging.NearestNeighbor)
	pos := image.Pt((AvatarSize-glyphs.Bounds().Dx())/2, (AvatarSize-glyphs.Bounds().Dy())/2)
	out := imaging.Overlay(canvas, glyphs, pos, 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return &Image{
		Width:       AvatarSize,
		Height:      AvatarSize,
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}

// drawText renders s with the 7x13 bitmap face onto a transparent image
// just large enough to hold it.
func drawText(s string, c color.Color) *image.NRGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	img := image.NewNRGBA(image.Rect(0, 0, width, face.Height))
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(s)
	return img
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
