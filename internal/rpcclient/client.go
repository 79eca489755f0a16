package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Service is the narrow surface the gateway needs from a downstream
// workload service. Responses are passed through verbatim; this layer
// never interprets the payload beyond transport errors.
type Service interface {
	List(ctx context.Context, organization string, offset, limit int) (json.RawMessage, error)
	Detail(ctx context.Context, organization, uid string) (json.RawMessage, error)
	Delete(ctx context.Context, organization, uid string) (bool, error)
}

// Client talks HTTP/JSON to one downstream service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the service at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// List fetches a page of resources scoped to an organization.
func (c *Client) List(ctx context.Context, organization string, offset, limit int) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s?offset=%s&limit=%s",
		c.baseURL, url.PathEscape(organization),
		strconv.Itoa(offset), strconv.Itoa(limit))
	return c.get(ctx, endpoint)
}

// Detail fetches one resource by uid.
func (c *Client) Detail(ctx context.Context, organization, uid string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(organization), url.PathEscape(uid))
	return c.get(ctx, endpoint)
}

// Delete asks the service to destroy one resource. The service answers
// {"deleted": bool}; false means the destroy operation itself failed.
func (c *Client) Delete(ctx context.Context, organization, uid string) (bool, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(organization), url.PathEscape(uid))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	var result struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Deleted, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return json.RawMessage(body), nil
}
