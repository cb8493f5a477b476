package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"skymock/app/models"
	"skymock/app/services"
)

// Feed is what the API needs from the feed adapter.
type Feed interface {
	FetchPostsByHandle(ctx context.Context, handle string) models.PostsResult
	FetchPostByURL(ctx context.Context, url string) models.PostResult
	ProxyAvatar(ctx context.Context, url string) (*models.Avatar, error)
}

// AvatarCacheControl is sent with every proxied avatar.
const AvatarCacheControl = "public, max-age=3600"

// APIController serves the Bluesky lookup endpoints
type APIController struct {
	feed Feed
	Now  func() time.Time
}

// NewAPIController creates a new APIController
func NewAPIController(feed Feed) *APIController {
	return &APIController{feed: feed, Now: time.Now}
}

// Posts handles GET /api/posts?handle=
func (ac *APIController) Posts(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	if handle == "" {
		sendError(w, r, "Handle parameter is required", http.StatusBadRequest)
		return
	}

	result := ac.feed.FetchPostsByHandle(r.Context(), handle)
	if result.Error != "" {
		log.Printf("[api] posts for %s: %s", handle, result.Error)
	}
	sendJSON(w, http.StatusOK, result)
}

// Post handles GET /api/post?url=
func (ac *APIController) Post(w http.ResponseWriter, r *http.Request) {
	postURL := r.URL.Query().Get("url")
	if postURL == "" {
		sendError(w, r, "URL parameter is required", http.StatusBadRequest)
		return
	}

	result := ac.feed.FetchPostByURL(r.Context(), postURL)
	if result.Error != "" {
		log.Printf("[api] post %s: %s", postURL, result.Error)
		sendJSON(w, http.StatusOK, map[string]string{"error": result.Error})
		return
	}
	sendJSON(w, http.StatusOK, result.RawPost)
}

// Avatar handles GET /api/avatar?url=, relaying the image bytes.
func (ac *APIController) Avatar(w http.ResponseWriter, r *http.Request) {
	avatarURL := r.URL.Query().Get("url")
	if avatarURL == "" {
		sendError(w, r, "URL parameter is required", http.StatusBadRequest)
		return
	}

	avatar, err := ac.feed.ProxyAvatar(r.Context(), avatarURL)
	if errors.Is(err, services.ErrInvalidAvatar) {
		sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("[api] avatar proxy failed: %v", err)
		sendError(w, r, "Failed to fetch avatar", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", avatar.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(avatar.Data)))
	w.Header().Set("Cache-Control", AvatarCacheControl)
	w.WriteHeader(http.StatusOK)
	w.Write(avatar.Data)
}

// Health handles GET /api/health
func (ac *APIController) Health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": ac.Now().UTC().Format(time.RFC3339),
	})
}
