package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

const twitterBaseURL = "https://api.twitter.com"

// TwitterAdapter publishes via the v2 tweets endpoint.
type TwitterAdapter struct {
	client *apiClient
}

func NewTwitterAdapter(cfg config.PlatformEntry) *TwitterAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = twitterBaseURL
	}
	return &TwitterAdapter{client: newAPIClient(base)}
}

func (a *TwitterAdapter) Kind() Kind {
	return KindTwitter
}

func (a *TwitterAdapter) Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error) {
	body, err := json.Marshal(map[string]string{"text": payload.Message})
	if err != nil {
		return PublishResult{Success: false, Error: fmt.Sprintf("twitter: failed to encode request: %v", err)}, nil
	}

	resp, err := a.client.do(ctx, "POST", "/2/tweets", map[string]string{
		"Authorization": "Bearer " + credential,
		"Content-Type":  "application/json",
	}, body)
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindTwitter, Err: err}
	}

	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("twitter api returned status %d: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	var decoded struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil || decoded.Data.ID == "" {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("twitter api returned an undecodable body: %s", truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	return PublishResult{
		Success:     true,
		PostID:      decoded.Data.ID,
		URL:         "https://twitter.com/i/web/status/" + decoded.Data.ID,
		RawResponse: string(resp.Body),
	}, nil
}

func (a *TwitterAdapter) Metrics(ctx context.Context, credential string, postID string) (Metrics, error) {
	resp, err := a.client.do(ctx, "GET", "/2/tweets/"+postID+"?tweet.fields=public_metrics", map[string]string{
		"Authorization": "Bearer " + credential,
	}, nil)
	if err != nil {
		return Metrics{}, &TransportError{Platform: KindTwitter, Err: err}
	}
	if !resp.ok() {
		return Metrics{}, fmt.Errorf("twitter api returned status %d: %s", resp.Status, truncate(resp.Body))
	}

	var decoded struct {
		Data struct {
			PublicMetrics struct {
				RetweetCount    int64 `json:"retweet_count"`
				ReplyCount      int64 `json:"reply_count"`
				LikeCount       int64 `json:"like_count"`
				ImpressionCount int64 `json:"impression_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return Metrics{}, fmt.Errorf("twitter api returned an undecodable body: %s", truncate(resp.Body))
	}

	pm := decoded.Data.PublicMetrics
	return Metrics{
		Views:       pm.ImpressionCount,
		Likes:       pm.LikeCount,
		Comments:    pm.ReplyCount,
		Shares:      pm.RetweetCount,
		Impressions: pm.ImpressionCount,
		Engagement:  pm.LikeCount + pm.ReplyCount + pm.RetweetCount,
	}, nil
}
