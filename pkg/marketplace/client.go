// Package marketplace implements the eBay-shaped REST adapters this service
// treats as an external collaborator: OAuth token exchange, inventory and
// location upsert, offer CRUD, and category-aspect taxonomy lookup. Request
// and response shapes, routes, and status-code handling follow the ebay::*
// modules of the original implementation one-for-one; JSON encoding uses
// sonic (as antflydb's REST client does for its own typed CRUD calls)
// instead of encoding/json.
package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/itsneelabh/hermes/internal/config"
	"github.com/itsneelabh/hermes/internal/corelog"
)

// Client is the shared handle for every eBay REST call this service makes.
type Client struct {
	http   *http.Client
	cfg    config.MarketplaceConfig
	logger corelog.Logger
}

// New builds a marketplace Client bound to httpClient and cfg.
func New(httpClient *http.Client, cfg config.MarketplaceConfig, logger corelog.Logger) *Client {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	return &Client{http: httpClient, cfg: cfg, logger: logger}
}

// RequestError wraps a non-2xx or transport failure from a marketplace call.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ErrEntityExists signals the create_offer 409 case the offer reconciliation
// state machine recovers from.
type ErrEntityExists struct{ SKU string }

func (e *ErrEntityExists) Error() string {
	return fmt.Sprintf("offer already exists for sku %q", e.SKU)
}

func (c *Client) root() string {
	return c.cfg.EbayRoot()
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body interface{}, accessToken string, out interface{}) (int, error) {
	u := c.root() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody *strings.Reader
	if body != nil {
		encoded, err := sonic.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		reqBody = strings.NewReader(string(encoded))
	} else {
		reqBody = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	decoder := sonic.ConfigDefault.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
