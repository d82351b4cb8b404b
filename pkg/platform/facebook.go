package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

const facebookBaseURL = "https://graph.facebook.com/v19.0"

// FacebookAdapter publishes to a page feed via the Graph API.
type FacebookAdapter struct {
	client *apiClient
}

func NewFacebookAdapter(cfg config.PlatformEntry) *FacebookAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = facebookBaseURL
	}
	return &FacebookAdapter{client: newAPIClient(base)}
}

func (a *FacebookAdapter) Kind() Kind {
	return KindFacebook
}

func (a *FacebookAdapter) Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error) {
	pageID := payload.Metadata["facebook_page_id"]
	if pageID == "" {
		return PublishResult{Success: false, Error: "facebook: missing facebook_page_id in metadata"}, nil
	}

	form := url.Values{}
	form.Set("message", payload.Message)
	form.Set("access_token", credential)
	if len(payload.MediaURLs) > 0 {
		form.Set("link", payload.MediaURLs[0])
	}

	resp, err := a.client.do(ctx, "POST", "/"+pageID+"/feed", map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}, []byte(form.Encode()))
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindFacebook, Err: err}
	}

	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("facebook api returned status %d: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil || decoded.ID == "" {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("facebook api returned an undecodable body: %s", truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	return PublishResult{
		Success:     true,
		PostID:      decoded.ID,
		URL:         "https://www.facebook.com/" + decoded.ID,
		RawResponse: string(resp.Body),
	}, nil
}

func (a *FacebookAdapter) Metrics(ctx context.Context, credential string, postID string) (Metrics, error) {
	path := "/" + postID + "?fields=likes.summary(true),comments.summary(true),shares&access_token=" + url.QueryEscape(credential)
	resp, err := a.client.do(ctx, "GET", path, nil, nil)
	if err != nil {
		return Metrics{}, &TransportError{Platform: KindFacebook, Err: err}
	}
	if !resp.ok() {
		return Metrics{}, fmt.Errorf("facebook api returned status %d: %s", resp.Status, truncate(resp.Body))
	}

	var decoded struct {
		Likes struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"likes"`
		Comments struct {
			Summary struct {
				TotalCount int64 `json:"total_count"`
			} `json:"summary"`
		} `json:"comments"`
		Shares struct {
			Count int64 `json:"count"`
		} `json:"shares"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return Metrics{}, fmt.Errorf("facebook api returned an undecodable body: %s", truncate(resp.Body))
	}

	likes := decoded.Likes.Summary.TotalCount
	comments := decoded.Comments.Summary.TotalCount
	shares := decoded.Shares.Count
	return Metrics{
		Likes:      likes,
		Comments:   comments,
		Shares:     shares,
		Engagement: likes + comments + shares,
	}, nil
}
