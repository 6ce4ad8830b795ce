package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvIdentityToken is the environment variable consulted by EnvProvider.
const EnvIdentityToken = "SPROUT_IDENTITY_TOKEN"

// FileProvider reads the identity assertion from a file maintained by the
// external identity tooling. The file is re-read on every call so a rotated
// assertion is picked up without restarting.
type FileProvider struct {
	Path string
}

// IdentityAssertion implements IdentityProvider.
func (p *FileProvider) IdentityAssertion(_ context.Context, _ bool) (string, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrNoIdentity, p.Path, err)
	}

	assertion := strings.TrimSpace(string(data))
	if assertion == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoIdentity, p.Path)
	}

	return assertion, nil
}

// EnvProvider reads the identity assertion from the environment. Used when
// the identity tooling injects the assertion into the process environment
// (CI, one-shot scripts).
type EnvProvider struct{}

// IdentityAssertion implements IdentityProvider.
func (EnvProvider) IdentityAssertion(_ context.Context, _ bool) (string, error) {
	assertion := strings.TrimSpace(os.Getenv(EnvIdentityToken))
	if assertion == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoIdentity, EnvIdentityToken)
	}

	return assertion, nil
}
