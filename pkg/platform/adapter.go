package platform

import (
	"context"
	"fmt"
)

// Kind identifies a supported platform. The set is closed: an unknown name is
// a construction-time error, not a runtime lookup miss.
type Kind string

const (
	KindLinkedIn  Kind = "linkedin"
	KindTwitter   Kind = "twitter"
	KindReddit    Kind = "reddit"
	KindFacebook  Kind = "facebook"
	KindInstagram Kind = "instagram"
)

// Kinds returns all supported platform kinds.
func Kinds() []Kind {
	return []Kind{KindLinkedIn, KindTwitter, KindReddit, KindFacebook, KindInstagram}
}

// ParseKind validates a platform name.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case KindLinkedIn, KindTwitter, KindReddit, KindFacebook, KindInstagram:
		return Kind(name), nil
	default:
		return "", fmt.Errorf("unknown platform: %s", name)
	}
}

// Payload is the content sent to a platform's creation endpoint.
type Payload struct {
	Message   string
	MediaURLs []string
	// Metadata carries platform-specific fields (author URN, subreddit, page id).
	Metadata map[string]string
}

// PublishResult is the normalized outcome of one publish call. Remote
// rejections (4xx/5xx, malformed bodies, unsupported operations) are captured
// here with Success=false; they are never surfaced as Go errors.
type PublishResult struct {
	Success     bool
	PostID      string
	URL         string
	Error       string
	RawResponse string
}

// Metrics is the normalized engagement record. Counters a platform does not
// expose stay zero. Engagement is adapter-computed; no shared formula is
// guaranteed across platforms.
type Metrics struct {
	Views       int64
	Likes       int64
	Comments    int64
	Shares      int64
	Clicks      int64
	Impressions int64
	Engagement  int64
}

// TransportError marks a transport-level failure (connection refused, timeout)
// as opposed to a remote rejection. It is the only error kind Publish returns.
type TransportError struct {
	Platform Kind
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Platform, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Adapter is the per-platform publish/metrics contract. Implementations make
// exactly one pass over the remote API per invocation and never retry; retries
// belong to the worker and the queue.
type Adapter interface {
	Kind() Kind
	// Publish sends the payload to the platform's creation endpoint using the
	// opaque bearer credential. Remote failures land in the result; only
	// transport failures are returned as *TransportError.
	Publish(ctx context.Context, credential string, payload Payload) (PublishResult, error)
	// Metrics returns normalized engagement counters for a remote post.
	// Platforms without a metrics API return a zero value and no error.
	Metrics(ctx context.Context, credential string, postID string) (Metrics, error)
}

// CredentialSource supplies the bearer credential per user and platform. The
// pipeline treats credentials as opaque.
type CredentialSource interface {
	Token(ctx context.Context, userID string, kind Kind) (string, error)
}

// StaticCredentialSource is a fixed user+platform credential map, keyed
// "userID:kind". Used in tests and single-tenant deployments.
type StaticCredentialSource map[string]string

func (s StaticCredentialSource) Token(ctx context.Context, userID string, kind Kind) (string, error) {
	token, ok := s[userID+":"+string(kind)]
	if !ok {
		return "", fmt.Errorf("no credential for user %s on %s", userID, kind)
	}
	return token, nil
}
