package platform

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvCredentialSource resolves one bearer token per platform from the process
// environment (CROSSPOST_TOKEN_LINKEDIN and so on). It ignores the user id and
// therefore only suits single-tenant deployments.
type EnvCredentialSource struct{}

func (EnvCredentialSource) Token(ctx context.Context, userID string, kind Kind) (string, error) {
	key := "CROSSPOST_TOKEN_" + strings.ToUpper(string(kind))
	token := os.Getenv(key)
	if token == "" {
		return "", fmt.Errorf("no credential for %s: %s is not set", kind, key)
	}
	return token, nil
}
