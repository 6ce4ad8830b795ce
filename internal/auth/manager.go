// Package auth implements the token lifecycle: deciding when the resident
// bearer token is stale, and exchanging an identity assertion for a fresh
// credential. The exchange is single-flight — concurrent callers share one
// in-flight refresh instead of issuing duplicate exchange calls.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/gardenlab/sprout/internal/credstore"
)

// StaleMargin is the safety window before token expiry. A token inside the
// margin is treated as unusable even though it has not technically expired,
// forcing a proactive refresh before the server starts rejecting it.
const StaleMargin = time.Hour

// DefaultExchangePath is the token-exchange endpoint used by Refresh.
const DefaultExchangePath = "/users/login/token"

// ErrRefreshFailed indicates the credential could not be refreshed. It is
// always recoverable: the caller falls back to requiring a fresh login.
var ErrRefreshFailed = errors.New("auth: token refresh failed")

// ErrNoIdentity indicates no identity session is available to refresh from.
var ErrNoIdentity = errors.New("auth: no active identity session")

// IdentityProvider supplies identity assertions from the external identity
// collaborator. forceRefresh requests a newly minted assertion rather than
// a cached one.
type IdentityProvider interface {
	IdentityAssertion(ctx context.Context, forceRefresh bool) (string, error)
}

// Manager decides token staleness and performs single-flight refreshes.
// It deliberately uses its own plain HTTP client rather than the
// authenticated pipeline: the exchange endpoint takes the identity assertion
// in the request body, and routing a refresh through the pipeline would
// recurse on 401.
type Manager struct {
	creds      *credstore.Store
	identity   IdentityProvider
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	group singleflight.Group

	// nowFunc is the clock for staleness decisions. Tests override it.
	nowFunc func() time.Time
}

// NewManager creates a token lifecycle manager.
func NewManager(
	creds *credstore.Store,
	identity IdentityProvider,
	baseURL string,
	httpClient *http.Client,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Manager{
		creds:      creds,
		identity:   identity,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		nowFunc:    time.Now,
	}
}

// IsStale reports whether the token should be proactively refreshed.
// A token is stale once now >= expiry - StaleMargin. Malformed tokens and
// tokens without an exp claim are stale.
func (m *Manager) IsStale(token string) bool {
	exp, err := tokenExpiry(token)
	if err != nil {
		return true
	}

	return !m.nowFunc().Before(exp.Add(-StaleMargin))
}

// tokenExpiry decodes the exp claim from a JWT without verifying the
// signature. Expiry is readable locally; signature verification is the
// server's job.
func tokenExpiry(token string) (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: parsing token: %w", err)
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("auth: token has no usable exp claim")
	}

	return exp.Time, nil
}

// Refresh obtains a fresh credential and persists it. Concurrent callers
// await the same in-flight exchange (single-flight). On failure it returns
// an error wrapping ErrRefreshFailed and leaves the credential store
// untouched — whether a failed refresh forces logout is the caller's call,
// since a transient network failure should not destroy the session.
func (m *Manager) Refresh(ctx context.Context) (*credstore.Credential, error) {
	v, err, shared := m.group.Do("refresh", func() (any, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		m.logger.Debug("refresh result shared with concurrent caller")
	}

	cred, ok := v.(*credstore.Credential)
	if !ok {
		return nil, fmt.Errorf("auth: unexpected refresh result type %T", v)
	}

	return cred, nil
}

func (m *Manager) refresh(ctx context.Context) (*credstore.Credential, error) {
	m.logger.Info("refreshing credential")

	assertion, err := m.identity.IdentityAssertion(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining identity assertion: %w", ErrRefreshFailed, err)
	}

	cred, err := m.ExchangeToken(ctx, DefaultExchangePath, assertion)
	if err != nil {
		return nil, err
	}

	if err := m.creds.Save(cred); err != nil {
		return nil, fmt.Errorf("%w: persisting credential: %w", ErrRefreshFailed, err)
	}

	m.logger.Info("credential refreshed",
		slog.String("owner_id", cred.OwnerID),
		slog.Time("expiry", cred.Expiry),
	)

	return cred, nil
}

// exchangeRequest is the wire format for the token-exchange endpoint.
type exchangeRequest struct {
	IDToken string `json:"idToken"`
}

// exchangeResponse is the success body of the token-exchange endpoint.
type exchangeResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

// errorEnvelope is the uniform failure body the service returns.
type errorEnvelope struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ExchangeToken posts an identity assertion to the given exchange endpoint
// and returns the resulting credential. It does not persist anything.
func (m *Manager) ExchangeToken(ctx context.Context, path, assertion string) (*credstore.Credential, error) {
	body, err := json.Marshal(exchangeRequest{IDToken: assertion})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding exchange request: %w", ErrRefreshFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: building exchange request: %w", ErrRefreshFailed, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange request: %w", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := "exchange rejected"
		if env := decodeEnvelope(resp.Body); env != nil && env.Message != "" {
			msg = env.Message
		}

		m.logger.Warn("token exchange rejected",
			slog.Int("status", resp.StatusCode),
			slog.String("message", msg),
		)

		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrRefreshFailed, resp.StatusCode, msg)
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding exchange response: %w", ErrRefreshFailed, err)
	}

	expiry, expErr := tokenExpiry(out.Token)
	if expErr != nil {
		// An opaque token still works; it will be treated as stale and
		// refreshed on every pipeline call.
		m.logger.Warn("exchanged token has no decodable expiry")
	}

	return &credstore.Credential{
		AccessToken: out.Token,
		OwnerID:     out.UserID,
		DisplayName: out.DisplayName,
		Expiry:      expiry,
	}, nil
}

// decodeEnvelope best-effort decodes the service error envelope.
// Returns nil when the body is not a recognizable envelope.
func decodeEnvelope(r io.Reader) *errorEnvelope {
	var env errorEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil
	}

	return &env
}
