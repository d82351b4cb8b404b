package platform

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zoff-tech/go-crosspost/pkg/config"
)

const linkedInBaseURL = "https://api.linkedin.com"

// LinkedInAdapter publishes via the Posts API. LinkedIn exposes no post-level
// analytics on the public API, so Metrics reports zeroes.
type LinkedInAdapter struct {
	client *apiClient
}

func NewLinkedInAdapter(cfg config.PlatformEntry) *LinkedInAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = linkedInBaseURL
	}
	return &LinkedInAdapter{client: newAPIClient(base)}
}

func (a *LinkedInAdapter) Kind() Kind {
	return KindLinkedIn
}

func (a *LinkedInAdapter) Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error) {
	author := payload.Metadata["linkedin_author"]
	if author == "" {
		return PublishResult{Success: false, Error: "linkedin: missing linkedin_author urn in metadata"}, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"author":         author,
		"commentary":     payload.Message,
		"visibility":     "PUBLIC",
		"lifecycleState": "PUBLISHED",
		"distribution": map[string]interface{}{
			"feedDistribution": "MAIN_FEED",
		},
	})
	if err != nil {
		return PublishResult{Success: false, Error: fmt.Sprintf("linkedin: failed to encode request: %v", err)}, nil
	}

	resp, err := a.client.do(ctx, "POST", "/rest/posts", map[string]string{
		"Authorization":             "Bearer " + credential,
		"Content-Type":              "application/json",
		"LinkedIn-Version":          "202405",
		"X-Restli-Protocol-Version": "2.0.0",
	}, body)
	if err != nil {
		return PublishResult{}, &TransportError{Platform: KindLinkedIn, Err: err}
	}

	if !resp.ok() {
		return PublishResult{
			Success:     false,
			Error:       fmt.Sprintf("linkedin api returned status %d: %s", resp.Status, truncate(resp.Body)),
			RawResponse: string(resp.Body),
		}, nil
	}

	postID := resp.Header.Get("X-Restli-Id")
	return PublishResult{
		Success:     true,
		PostID:      postID,
		URL:         "https://www.linkedin.com/feed/update/" + postID,
		RawResponse: string(resp.Body),
	}, nil
}

func (a *LinkedInAdapter) Metrics(ctx context.Context, credential string, postID string) (Metrics, error) {
	// No data available is not a failure.
	return Metrics{}, nil
}
