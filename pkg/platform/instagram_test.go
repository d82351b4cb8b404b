package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

func TestInstagramPublish_TwoStepFlow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/ig-user/media":
			assert.Equal(t, "https://cdn.example.com/pic.jpg", r.PostForm.Get("image_url"))
			assert.Equal(t, "hello", r.PostForm.Get("caption"))
			w.Write([]byte(`{"id":"container-1"}`))
		case "/ig-user/media_publish":
			assert.Equal(t, "container-1", r.PostForm.Get("creation_id"))
			w.Write([]byte(`{"id":"media-1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	a := NewInstagramAdapter(config.PlatformEntry{BaseURL: server.URL})
	result, err := a.Publish(context.Background(), "instagram-token", Payload{
		Message:   "hello",
		MediaURLs: []string{"https://cdn.example.com/pic.jpg"},
		Metadata:  map[string]string{"instagram_user_id": "ig-user"},
	})
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "media-1", result.PostID)
	assert.Equal(t, "https://www.instagram.com/p/media-1", result.URL)
}

func TestInstagramPublish_RequiresMedia(t *testing.T) {
	a := NewInstagramAdapter(config.PlatformEntry{})
	result, err := a.Publish(context.Background(), "instagram-token", Payload{
		Message:  "hello",
		Metadata: map[string]string{"instagram_user_id": "ig-user"},
	})
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "media url")
}

func TestInstagramPublish_ContainerRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Media type unsupported"}}`))
	}))
	defer server.Close()

	a := NewInstagramAdapter(config.PlatformEntry{BaseURL: server.URL})
	result, err := a.Publish(context.Background(), "instagram-token", Payload{
		Message:   "hello",
		MediaURLs: []string{"https://cdn.example.com/pic.gif"},
		Metadata:  map[string]string{"instagram_user_id": "ig-user"},
	})
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "media container")
}

func TestInstagramMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media-1/insights", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"name":"impressions","values":[{"value":900}]},
			{"name":"likes","values":[{"value":30}]},
			{"name":"comments","values":[{"value":5}]},
			{"name":"shares","values":[{"value":2}]}
		]}`))
	}))
	defer server.Close()

	a := NewInstagramAdapter(config.PlatformEntry{BaseURL: server.URL})
	m, err := a.Metrics(context.Background(), "instagram-token", "media-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(900), m.Impressions)
	assert.Equal(t, int64(900), m.Views)
	assert.Equal(t, int64(30), m.Likes)
	assert.Equal(t, int64(5), m.Comments)
	assert.Equal(t, int64(2), m.Shares)
	assert.Equal(t, int64(37), m.Engagement)
}
