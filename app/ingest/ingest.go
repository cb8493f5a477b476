package ingest

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	// Register decoders beyond the ones imaging pulls in.
	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

// Role says what an uploaded image will become.
type Role string

const (
	RoleAvatar    Role = "avatar"
	RolePostImage Role = "postImage"
)

const (
	DefaultMaxBytes = 5 << 20

	AvatarSize      = 200
	AvatarMinSize   = 100
	PostImageMaxW   = 800
	JPEGQuality     = 80
	jpegContentType = "image/jpeg"
)

var (
	ErrTooLarge    = errors.New("image file is too large")
	ErrNotImage    = errors.New("please select a valid image file")
	ErrDecode      = errors.New("failed to load image")
	ErrTooSmall    = errors.New("image is below the minimum size")
	ErrUnknownRole = errors.New("unknown image role")
)

// ParseRole accepts the role names used by the upload form.
func ParseRole(s string) (Role, error) {
	switch strings.TrimSpace(s) {
	case string(RoleAvatar):
		return RoleAvatar, nil
	case string(RolePostImage), "post-image", "post_image":
		return RolePostImage, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Image is a processed, locally addressable image. Nothing is persisted.
type Image struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// DataURL returns the image as an inline data: URL.
func (i *Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Ingester validates and resizes uploaded images.
type Ingester struct {
	maxBytes int64
}

// NewIngester creates an Ingester; maxBytes <= 0 means DefaultMaxBytes.
func NewIngester(maxBytes int64) *Ingester {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Ingester{maxBytes: maxBytes}
}

// MaxBytes is the upload size limit.
func (i *Ingester) MaxBytes() int64 {
	return i.maxBytes
}

// Ingest reads an upload of the declared size and produces the resized
// image for role. A negative size means unknown.
func (i *Ingester) Ingest(r io.Reader, size int64, role Role) (*Image, error) {
	if role != RoleAvatar && role != RolePostImage {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	if size > i.maxBytes {
		return nil, i.tooLarge()
	}

	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, i.tooLarge()
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: got %s", ErrNotImage, mt.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var out image.Image
	switch role {
	case RoleAvatar:
		b := img.Bounds()
		if b.Dx() < AvatarMinSize || b.Dy() < AvatarMinSize {
			return nil, fmt.Errorf("%w of %dx%d pixels (got %dx%d)", ErrTooSmall, AvatarMinSize, AvatarMinSize, b.Dx(), b.Dy())
		}
		out = imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	case RolePostImage:
		out = FitWidth(img, PostImageMaxW)
	}

	return encodeJPEG(out)
}

// FitWidth scales img down to maxWidth keeping its aspect ratio. Images
// already narrow enough are returned unchanged.
func FitWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}

func (i *Ingester) tooLarge() error {
	return fmt.Errorf("%w: must be less than %s", ErrTooLarge, humanize.IBytes(uint64(i.maxBytes)))
}

func encodeJPEG(img image.Image) (*Image, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	b := img.Bounds()
	return &Image{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ContentType: jpegContentType,
		Data:        buf.Bytes(),
	}, nil
}
