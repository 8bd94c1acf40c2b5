package marketplace

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

// ErrMissingCredentials is returned when the eBay app id/secret env vars
// are unset.
var ErrMissingCredentials = fmt.Errorf("missing ebay app credentials in environment")

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

func (c *Client) basicAuthHeader() (string, error) {
	if c.cfg.AppID == "" || c.cfg.CertID == "" {
		return "", ErrMissingCredentials
	}
	raw := c.cfg.AppID + ":" + c.cfg.CertID
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}

// GetAppAccessToken exchanges the app's client credentials for an
// application access token scoped to scopes.
func (c *Client) GetAppAccessToken(ctx context.Context, scopes []string) (string, error) {
	if _, err := c.basicAuthHeader(); err != nil {
		return "", err
	}
	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {strings.Join(scopes, " ")},
	}
	return c.requestToken(ctx, form)
}

// GetUserAccessTokenFromRefresh exchanges a refresh token for a user access
// token scoped to scopes.
func (c *Client) GetUserAccessTokenFromRefresh(ctx context.Context, refreshToken string, scopes []string) (string, error) {
	if _, err := c.basicAuthHeader(); err != nil {
		return "", err
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {strings.Join(scopes, " ")},
	}
	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthTokenURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.cfg.AppID, c.cfg.CertID)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &RequestError{Op: "ebay.oauth", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RequestError{Op: "ebay.oauth", Status: resp.StatusCode}
	}

	var payload tokenResponse
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &RequestError{Op: "ebay.oauth", Err: err}
	}
	return payload.AccessToken, nil
}
