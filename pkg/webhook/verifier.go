package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/zoff-tech/go-crosspost/pkg/config"
	"github.com/zoff-tech/go-crosspost/pkg/platform"
)

// Verifier checks HMAC-SHA256 signatures on inbound platform callbacks.
// Every decision fails closed: a missing secret, an unknown platform or a
// malformed signature all reject the request.
type Verifier struct {
	secrets map[platform.Kind]string
}

func NewVerifier(cfg config.PlatformSettings) *Verifier {
	return &Verifier{
		secrets: map[platform.Kind]string{
			platform.KindLinkedIn:  cfg.LinkedIn.WebhookSecret,
			platform.KindTwitter:   cfg.Twitter.WebhookSecret,
			platform.KindReddit:    cfg.Reddit.WebhookSecret,
			platform.KindFacebook:  cfg.Facebook.WebhookSecret,
			platform.KindInstagram: cfg.Instagram.WebhookSecret,
		},
	}
}

// SignatureHeader names the HTTP header each platform delivers its
// signature in.
func SignatureHeader(kind platform.Kind) string {
	switch kind {
	case platform.KindFacebook, platform.KindInstagram:
		return "X-Hub-Signature-256"
	case platform.KindTwitter:
		return "X-Twitter-Webhooks-Signature"
	case platform.KindLinkedIn:
		return "X-LI-Signature"
	case platform.KindReddit:
		return "X-Reddit-Signature"
	}
	return ""
}

// Verify reports whether signature matches the HMAC-SHA256 of body under the
// platform's configured secret. Comparison is constant time.
func (v *Verifier) Verify(kind platform.Kind, body []byte, signature string) bool {
	secret, ok := v.secrets[kind]
	if !ok || secret == "" || signature == "" {
		return false
	}

	expected, ok := decodeSignature(kind, signature)
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}

// decodeSignature undoes the platform-specific wire encoding. Facebook and
// Instagram send "sha256=" plus hex, Twitter sends "sha256=" plus base64,
// LinkedIn and Reddit send bare hex.
func decodeSignature(kind platform.Kind, signature string) ([]byte, bool) {
	switch kind {
	case platform.KindFacebook, platform.KindInstagram:
		raw, found := strings.CutPrefix(signature, "sha256=")
		if !found {
			return nil, false
		}
		decoded, err := hex.DecodeString(raw)
		return decoded, err == nil
	case platform.KindTwitter:
		raw, found := strings.CutPrefix(signature, "sha256=")
		if !found {
			return nil, false
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		return decoded, err == nil
	case platform.KindLinkedIn, platform.KindReddit:
		decoded, err := hex.DecodeString(signature)
		return decoded, err == nil
	}
	return nil, false
}
