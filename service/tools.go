package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"skymock/app/config"
	"skymock/app/export"
	"skymock/app/models"
	"skymock/app/render"
	"skymock/app/services"
)

var ErrNoLookup = errors.New("either a handle or a post URL is required")

func newFeed(cfg *config.Config) *services.FeedService {
	return services.NewFeedService(services.FeedOptions{
		Host:           cfg.Feed.Host,
		PageSize:       cfg.Feed.PageSize,
		UserAgent:      cfg.Feed.UserAgent,
		Timeout:        cfg.Feed.Timeout,
		AvatarMaxBytes: cfg.Avatar.MaxBytes,
	})
}

// Fetch looks up a handle's feed or a single post and prints the result
// as JSON. Soft lookup failures are printed and returned as errors.
func Fetch(ctx context.Context, cfg *config.Config, handle, postURL string, out io.Writer) error {
	feed := newFeed(cfg)

	var result interface{}
	var failure string
	switch {
	case handle != "":
		r := feed.FetchPostsByHandle(ctx, handle)
		result, failure = r, r.Error
	case postURL != "":
		r := feed.FetchPostByURL(ctx, postURL)
		result, failure = r, r.Error
	default:
		return ErrNoLookup
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}
	if failure != "" {
		return errors.New(failure)
	}
	return nil
}

// LoadPost reads PostData JSON from path, or from in when path is "-".
func LoadPost(path string, in io.Reader) (models.PostData, error) {
	var data models.PostData
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return data, fmt.Errorf("failed to read post: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("failed to parse post: %w", err)
	}
	data.Normalize()
	if err := data.Validate(); err != nil {
		return data, fmt.Errorf("invalid post: %w", err)
	}
	return data, nil
}

// RenderPost writes the preview markup for data.
func RenderPost(cfg *config.Config, data models.PostData, out io.Writer) error {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return err
	}
	renderer, err := render.New(loc)
	if err != nil {
		return err
	}
	html, err := renderer.Render(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, html)
	return err
}

// ExportPost rasterizes data into dir and returns the written path.
func ExportPost(ctx context.Context, cfg *config.Config, data models.PostData, theme models.Theme, size export.Size, dir string) (string, error) {
	loc, err := cfg.TimeLocation()
	if err != nil {
		return "", err
	}
	raster := export.NewCardRasterizer(export.NewLoader(newFeed(cfg)), loc, time.Now)
	exporter := export.NewExporter(export.NewThemeDocument(theme), raster, export.Options{
		Scale:    cfg.Export.Scale,
		Location: loc,
	})

	result, err := exporter.Export(ctx, data, theme, size)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, result.Filename)
	if err := os.WriteFile(path, result.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
