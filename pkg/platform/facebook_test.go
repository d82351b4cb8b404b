package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

func TestFacebookPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/feed", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "hello", r.PostForm.Get("message"))
		assert.Equal(t, "facebook-token", r.PostForm.Get("access_token"))
		w.Write([]byte(`{"id":"page-1_post-9"}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter(config.PlatformEntry{BaseURL: server.URL})
	result, err := a.Publish(context.Background(), "facebook-token", Payload{
		Message:  "hello",
		Metadata: map[string]string{"facebook_page_id": "page-1"},
	})
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "page-1_post-9", result.PostID)
	assert.Equal(t, "https://www.facebook.com/page-1_post-9", result.URL)
}

func TestFacebookPublish_MissingPageID(t *testing.T) {
	a := NewFacebookAdapter(config.PlatformEntry{})
	result, err := a.Publish(context.Background(), "facebook-token", Payload{Message: "hello"})
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "facebook_page_id")
}

func TestFacebookPublish_RemoteRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter(config.PlatformEntry{BaseURL: server.URL})
	result, err := a.Publish(context.Background(), "facebook-token", Payload{
		Message:  "hello",
		Metadata: map[string]string{"facebook_page_id": "page-1"},
	})
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "status 400")
}

func TestFacebookMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1_post-9", r.URL.Path)
		w.Write([]byte(`{"likes":{"summary":{"total_count":12}},"comments":{"summary":{"total_count":4}},"shares":{"count":2}}`))
	}))
	defer server.Close()

	a := NewFacebookAdapter(config.PlatformEntry{BaseURL: server.URL})
	m, err := a.Metrics(context.Background(), "facebook-token", "page-1_post-9")
	assert.NoError(t, err)
	assert.Equal(t, int64(12), m.Likes)
	assert.Equal(t, int64(4), m.Comments)
	assert.Equal(t, int64(2), m.Shares)
	assert.Equal(t, int64(18), m.Engagement)
}
