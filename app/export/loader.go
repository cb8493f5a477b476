package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/url"
	"strings"

	"skymock/app/models"

	"github.com/disintegration/imaging"
)

var ErrUnsupportedSource = errors.New("unsupported image source")

// AvatarProxy fetches remote image bytes through the server-side cache.
type AvatarProxy interface {
	ProxyAvatar(ctx context.Context, url string) (*models.Avatar, error)
}

// ImageLoader resolves an image source referenced by PostData.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// Loader decodes data: URLs in place and fetches http(s) URLs through the
// avatar proxy, so remote images never need a cross-origin fetch.
type Loader struct {
	proxy AvatarProxy
}

// NewLoader creates a Loader. proxy may be nil to allow only data: URLs.
func NewLoader(proxy AvatarProxy) *Loader {
	return &Loader{proxy: proxy}
}

// Load returns the decoded image behind src.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	if strings.HasPrefix(src, "data:") {
		data, err := decodeDataURL(src)
		if err != nil {
			return nil, err
		}
		return imaging.Decode(bytes.NewReader(data))
	}

	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || l.proxy == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, src)
	}
	avatar, err := l.proxy.ProxyAvatar(ctx, src)
	if err != nil {
		return nil, err
	}
	return imaging.Decode(bytes.NewReader(avatar.Data))
}

// decodeDataURL extracts the payload of a base64 data: URL.
func decodeDataURL(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: data URL must be base64", ErrUnsupportedSource)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid data URL: %w", err)
	}
	return data, nil
}
