package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skymock/app/models"
	"skymock/app/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIControllerPosts(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		result         models.PostsResult
		expectedStatus int
		expectedCount  int
		expectedError  string
	}{
		{
			name:           "Missing handle",
			query:          "",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Handle parameter is required",
		},
		{
			name:           "Posts found",
			query:          "?handle=alice.bsky.social",
			result:         models.PostsResult{Posts: samplePosts(3), Count: 3},
			expectedStatus: http.StatusOK,
			expectedCount:  3,
		},
		{
			name:           "Upstream failure is soft",
			query:          "?handle=nobody",
			result:         models.PostsResult{Posts: []models.RawPost{}, Error: "Bluesky API error: 400"},
			expectedStatus: http.StatusOK,
			expectedError:  "Bluesky API error: 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &fakeFeed{posts: tt.result}
			ac := NewAPIController(feed)

			req := httptest.NewRequest(http.MethodGet, "/api/posts"+tt.query, nil)
			w := httptest.NewRecorder()
			ac.Posts(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body struct {
				Posts []models.RawPost `json:"posts"`
				Count int              `json:"count"`
				Error string           `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedError, body.Error)
			assert.Len(t, body.Posts, tt.expectedCount)
			if tt.expectedStatus == http.StatusBadRequest {
				assert.Empty(t, feed.handles)
			}
		})
	}
}

func TestAPIControllerPost(t *testing.T) {
	post := samplePosts(1)[0]
	tests := []struct {
		name           string
		query          string
		result         models.PostResult
		expectedStatus int
		expectedText   string
		expectedError  string
	}{
		{
			name:           "Missing URL",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "URL parameter is required",
		},
		{
			name:           "Post found",
			query:          "?url=https://bsky.app/profile/alice.bsky.social/post/abc123",
			result:         models.PostResult{RawPost: &post},
			expectedStatus: http.StatusOK,
			expectedText:   post.Text,
		},
		{
			name:           "Invalid URL is soft",
			query:          "?url=https://example.com/whatever",
			result:         models.PostResult{Error: services.ErrInvalidPostURL.Error()},
			expectedStatus: http.StatusOK,
			expectedError:  "Invalid post URL format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := NewAPIController(&fakeFeed{post: tt.result})

			req := httptest.NewRequest(http.MethodGet, "/api/post"+tt.query, nil)
			w := httptest.NewRecorder()
			ac.Post(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
			} else {
				assert.NotContains(t, body, "error")
				assert.Equal(t, tt.expectedText, body["text"])
			}
		})
	}
}

func TestAPIControllerAvatar(t *testing.T) {
	avatar := &models.Avatar{ContentType: "image/png", Data: []byte("\x89PNG fake")}

	tests := []struct {
		name           string
		query          string
		avatar         *models.Avatar
		err            error
		expectedStatus int
	}{
		{"Missing URL", "", nil, nil, http.StatusBadRequest},
		{"Invalid URL", "?url=ftp://cdn.example/a.png", nil, services.ErrInvalidAvatar, http.StatusBadRequest},
		{"Upstream failure", "?url=https://cdn.example/a.png", nil, errors.New("failed to fetch avatar: upstream status 404"), http.StatusInternalServerError},
		{"Relayed", "?url=https://cdn.example/a.png", avatar, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac := NewAPIController(&fakeFeed{avatar: tt.avatar, err: tt.err})

			req := httptest.NewRequest(http.MethodGet, "/api/avatar"+tt.query, nil)
			w := httptest.NewRecorder()
			ac.Avatar(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
				assert.Equal(t, AvatarCacheControl, w.Header().Get("Cache-Control"))
				assert.Equal(t, avatar.Data, w.Body.Bytes())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestAPIControllerHealth(t *testing.T) {
	ac := NewAPIController(&fakeFeed{})
	ac.Now = func() time.Time { return fixedNow }

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	ac.Health(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "2024-05-01T12:30:00Z", body["timestamp"])
}
