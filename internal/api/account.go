package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gardenlab/sprout/internal/credstore"
)

// registerRequest is the wire format for account registration.
type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// authResponse is the success body of the registration endpoint.
type authResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
	ExpiresAt   int64  `json:"expiresAt,omitempty"`
}

// Register creates a new account and returns the issued credential.
// The registration path bypasses credential attachment — no credential
// exists yet. Persisting the returned credential is the caller's job.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*credstore.Credential, error) {
	req := registerRequest{Email: email, Password: password, DisplayName: displayName}

	var out authResponse
	if err := c.doJSON(ctx, http.MethodPost, "/users/register", req, &out); err != nil {
		return nil, err
	}

	cred := &credstore.Credential{
		AccessToken: out.Token,
		OwnerID:     out.UserID,
		DisplayName: out.DisplayName,
	}
	if out.ExpiresAt > 0 {
		cred.Expiry = time.Unix(out.ExpiresAt, 0)
	}

	return cred, nil
}

// DeleteAccount permanently removes the authenticated account server-side.
// Clearing local state afterwards is the caller's job.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/users/me", nil, nil)
}
