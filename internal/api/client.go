package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gardenlab/sprout/internal/credstore"
)

const userAgent = "sprout/0.1"

// CredentialStore is the pipeline's view of the persisted credential.
// Defined at the consumer per Go convention "accept interfaces, return
// structs"; credstore.Store is the real implementation.
type CredentialStore interface {
	Load() (*credstore.Credential, error)
	Clear() error
}

// TokenManager decides staleness and performs the single-flight refresh.
// auth.Manager is the real implementation.
type TokenManager interface {
	IsStale(token string) bool
	Refresh(ctx context.Context) (*credstore.Credential, error)
}

// Client executes requests against the sprout service through the
// authenticated pipeline: it attaches the resident credential, refreshes a
// stale token proactively, and on a 401 performs exactly one
// refresh-and-retry before giving up.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
	tokens     TokenManager
	logger     *slog.Logger
}

// NewClient creates a service client. baseURL is the service root, without
// a trailing slash.
func NewClient(baseURL string, httpClient *http.Client, creds CredentialStore, tokens TokenManager, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		creds:      creds,
		tokens:     tokens,
		logger:     logger,
	}
}

// isAuthBypassPath reports whether the path belongs to the login/registration
// surface, which is dispatched without credentials (none exist yet).
func isAuthBypassPath(path string) bool {
	return strings.HasPrefix(path, "/users/login") || strings.HasPrefix(path, "/users/register")
}

// sanitizeHeaderValue strips control and non-ASCII characters. The owner id
// rides in an HTTP header, which cannot carry arbitrary bytes.
func sanitizeHeaderValue(s string) string {
	var b strings.Builder

	for _, r := range s {
		if r >= 0x20 && r <= 0x7e {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// do executes one logical call through the pipeline. The body is a byte
// slice (not a reader) so the request can be rebuilt for the single retry.
// On 2xx the response is returned with an open body the caller must close.
// Non-2xx responses are consumed and returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string) (*http.Response, error) {
	cred, err := c.attachCredential(ctx, path)
	if err != nil {
		return nil, err
	}

	resp, err := c.dispatch(ctx, method, path, body, contentType, cred)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && cred != nil {
		resp, err = c.retryAfterRefresh(ctx, method, path, body, contentType, resp)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	errBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()

	if readErr != nil {
		errBody = nil
	}

	apiErr := newAPIError(resp.StatusCode, errBody)
	c.logger.Warn("request failed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.String("message", apiErr.Message),
	)

	return nil, apiErr
}

// attachCredential loads the resident credential for the call, refreshing
// proactively when it is stale. Bypass paths and the logged-out state yield
// a nil credential: the request goes out bare and the server decides.
func (c *Client) attachCredential(ctx context.Context, path string) (*credstore.Credential, error) {
	if isAuthBypassPath(path) {
		return nil, nil //nolint:nilnil // bypass: no credential wanted
	}

	cred, err := c.creds.Load()
	if err != nil {
		return nil, fmt.Errorf("api: loading credential: %w", err)
	}

	if cred == nil {
		return nil, nil //nolint:nilnil // logged out: dispatch bare
	}

	if c.tokens.IsStale(cred.AccessToken) {
		c.logger.Info("token stale, refreshing proactively")

		fresh, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr != nil {
			// Non-fatal: dispatch with the old token and let the 401
			// path make the final call.
			c.logger.Warn("proactive refresh failed",
				slog.String("error", refreshErr.Error()),
			)

			return cred, nil
		}

		cred = fresh
	}

	return cred, nil
}

// retryAfterRefresh handles the 401 path: discard the failed response,
// refresh once, and either rebuild-and-retry exactly once or clear the
// session and surface the original 401.
func (c *Client) retryAfterRefresh(
	ctx context.Context,
	method, path string,
	body []byte,
	contentType string,
	failed *http.Response,
) (*http.Response, error) {
	_, _ = io.Copy(io.Discard, failed.Body)
	failed.Body.Close()

	c.logger.Info("unauthorized, attempting token refresh",
		slog.String("method", method),
		slog.String("path", path),
	)

	fresh, err := c.tokens.Refresh(ctx)
	if err != nil {
		// Refresh failed: this session is over. Clearing the store routes
		// the caller to login; the original 401 is the final answer.
		c.logger.Warn("refresh failed, clearing session",
			slog.String("error", err.Error()),
		)

		if clearErr := c.creds.Clear(); clearErr != nil {
			c.logger.Error("failed to clear credential store",
				slog.String("error", clearErr.Error()),
			)
		}

		return nil, &APIError{
			StatusCode: http.StatusUnauthorized,
			Message:    "session expired, please log in again",
			Err:        ErrUnauthorized,
		}
	}

	c.logger.Info("token refreshed, retrying request once",
		slog.String("method", method),
		slog.String("path", path),
	)

	resp, err := c.dispatch(ctx, method, path, body, contentType, fresh)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s (retry): %w", ErrNetwork, method, path, err)
	}

	// Whatever the retry yields is final. No second retry, ever.
	return resp, nil
}

// dispatch builds and sends a single HTTP request (no retry logic).
func (c *Client) dispatch(
	ctx context.Context,
	method, path string,
	body []byte,
	contentType string,
	cred *credstore.Credential,
) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if cred != nil {
		req.Header.Set("Authorization", "Bearer "+cred.AccessToken)

		if id := sanitizeHeaderValue(cred.OwnerID); id != "" {
			req.Header.Set("X-User-Id", id)
		}
	}

	return c.httpClient.Do(req)
}

// doJSON executes a call with an optional JSON request body and decodes the
// JSON response into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var (
		body        []byte
		contentType string
		err         error
	)

	if in != nil {
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding request: %w", err)
		}

		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %w", ErrDecode, method, path, err)
	}

	return nil
}
