package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

const instagramBaseURL = "https://graph.facebook.com/v19.0"

// InstagramAdapter publishes via the content publishing API. Instagram has no
// text-only posts; a payload without media is rejected as a normal failure.
type InstagramAdapter struct {
	client *apiClient
}

func NewInstagramAdapter(cfg config.PlatformEntry) *InstagramAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = instagramBaseURL
	}
	return &InstagramAdapter{client: newAPIClient(base)}
}

func (a *InstagramAdapter) Kind() Kind {
	return KindInstagram
}

func (a *InstagramAdapter) Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error) {
	userID := payload.Metadata["instagram_user_id"]
	if userID == "" {
		return PublishResult{Success: false, Error: "instagram: missing instagram_user_id in metadata"}, nil
	}
	if len(payload.MediaURLs) == 0 {
		return PublishResult{Success: false, Error: "instagram requires at least one media url"}, nil
	}

	// The content publishing API is a two-step flow: create a media container,
	// then publish it. Each step is invoked once; failures are never retried here.
	form := url.Values{}
	form.Set("image_url", payload.MediaURLs[0])
	form.Set("caption", payload.Message)
	form.Set("access_token", credential)

	resp, err := a.client.do(ctx, "POST", "/"+userID+"/media", map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, []byte(form.Encode()))
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindInstagram, Err: err}
	}
	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("instagram api returned status %d creating the media container: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	var container struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &container); err != nil || container.ID == "" {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("instagram api returned an undecodable container body: %s", truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", container.ID)
	publishForm.Set("access_token", credential)

	resp, err = a.client.do(ctx, "POST", "/"+userID+"/media_publish", map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, []byte(publishForm.Encode()))
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindInstagram, Err: err}
	}
	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("instagram api returned status %d publishing the container: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	var media struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &media); err != nil || media.ID == "" {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("instagram api returned an undecodable publish body: %s", truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	return PublishResult{
		Success:     true,
		PostID:      media.ID,
		URL:         "https://www.instagram.com/p/" + media.ID,
		RawResponse: string(resp.Body),
	}, nil
}

func (a *InstagramAdapter) Metrics(ctx context.Context, credential string, postID string) (Metrics, error) {
	path := "/" + postID + "/insights?metric=impressions,likes,comments,shares&access_token=" + url.QueryEscape(credential)
	resp, err := a.client.do(ctx, "GET", path, nil, nil)
	if err != nil {
		return Metrics{}, &TransportError{Platform: KindInstagram, Err: err}
	}
	if !resp.ok() {
		return Metrics{}, fmt.Errorf("instagram api returned status %d: %s", resp.Status, truncate(resp.Body))
	}

	var decoded struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return Metrics{}, fmt.Errorf("instagram api returned an undecodable body: %s", truncate(resp.Body))
	}

	var m Metrics
	for _, entry := range decoded.Data {
		if len(entry.Values) == 0 {
			continue
		}
		v := entry.Values[0].Value
		switch entry.Name {
		case "impressions":
			m.Impressions = v
			m.Views = v
		case "likes":
			m.Likes = v
		case "comments":
			m.Comments = v
		case "shares":
			m.Shares = v
		}
	}
	m.Engagement = m.Likes + m.Comments + m.Shares
	return m, nil
}
