package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

const redditBaseURL = "https://oauth.reddit.com"

// RedditAdapter publishes self posts via the submit endpoint.
type RedditAdapter struct {
	client *apiClient
}

func NewRedditAdapter(cfg config.PlatformEntry) *RedditAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = redditBaseURL
	}
	return &RedditAdapter{client: newAPIClient(base)}
}

func (a *RedditAdapter) Kind() Kind {
	return KindReddit
}

func (a *RedditAdapter) Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error) {
	subreddit := payload.Metadata["subreddit"]
	if subreddit == "" {
		return PublishResult{Success: false, Error: "reddit: missing subreddit in metadata"}, nil
	}
	title := payload.Metadata["title"]
	if title == "" {
		title = payload.Message
		if len(title) > 300 {
			title = title[:300]
		}
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("kind", "self")
	form.Set("sr", subreddit)
	form.Set("title", title)
	form.Set("text", payload.Message)

	resp, err := a.client.do(ctx, "POST", "/api/submit", map[string]string{
		"Authorization": "Bearer " + credential,
		"Content-Type":  "application/x-www-form-urlencoded",
	}, []byte(form.Encode()))
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindReddit, Err: err}
	}

	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("reddit api returned status %d: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	var decoded struct {
		JSON struct {
			Errors [][]interface{} `json:"errors"`
			Data   struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("reddit api returned an undecodable body: %s", truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}
	if len(decoded.JSON.Errors) > 0 {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("reddit rejected the submission: %v", decoded.JSON.Errors),
			RawResponse: string(resp.Body),
		}, nil
	}

	return PublishResult{
		Success:     true,
		PostID:      decoded.JSON.Data.ID,
		URL:         decoded.JSON.Data.URL,
		RawResponse: string(resp.Body),
	}, nil
}

func (a *RedditAdapter) Metrics(ctx context.Context, credential string, postID string) (Metrics, error) {
	resp, err := a.client.do(ctx, "GET", "/api/info?id=t3_"+postID, map[string]string{
		"Authorization": "Bearer " + credential,
	}, nil)
	if err != nil {
		return Metrics{}, &TransportError{Platform: KindReddit, Err: err}
	}
	if !resp.ok() {
		return Metrics{}, fmt.Errorf("reddit api returned status %d: %s", resp.Status, truncate(resp.Body))
	}

	var decoded struct {
		Data struct {
			Children []struct {
				Data struct {
					Score       int64 `json:"score"`
					NumComments int64 `json:"num_comments"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return Metrics{}, fmt.Errorf("reddit api returned an undecodable body: %s", truncate(resp.Body))
	}
	if len(decoded.Data.Children) == 0 {
		// Post not indexed yet; no data available is not a failure.
		return Metrics{}, nil
	}

	d := decoded.Data.Children[0].Data
	return Metrics{
		Likes:      d.Score,
		Comments:   d.NumComments,
		Engagement: d.Score + d.NumComments,
	}, nil
}
