package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dhawalhost/permitkit/pkg/policy"
)

// Client is a client for the policy decision API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Config holds configuration for the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Decide asks the service whether the request is allowed. Any transport or API
// error is returned alongside false; callers must treat it as a denial.
func (c *Client) Decide(ctx context.Context, req policy.DecisionRequest) (bool, error) {
	var res policy.DecisionResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/decisions", req, &res); err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// Filter returns the indexes of req.Instances the subject may act on.
func (c *Client) Filter(ctx context.Context, req policy.FilterRequest) ([]int, error) {
	var res policy.FilterResponse
	if err := c.doRequest(ctx, http.MethodPost, "/v1/decisions/filter", req, &res); err != nil {
		return nil, err
	}
	return res.AllowedIndexes, nil
}

// Policies lists the policy names registered on the service.
func (c *Client) Policies(ctx context.Context) ([]policy.Name, error) {
	var res policy.PoliciesResponse
	if err := c.doRequest(ctx, http.MethodGet, "/v1/policies", nil, &res); err != nil {
		return nil, err
	}
	return res.Policies, nil
}

// SubjectGrants returns a subject with the roles and grants the service resolved
// for it. The route is only served on the admin listener, so c.BaseURL must
// point there.
func (c *Client) SubjectGrants(ctx context.Context, subjectID string) (*policy.Subject, error) {
	var res policy.Subject
	path := "/v1/subjects/" + url.PathEscape(subjectID) + "/grants"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// doRequest helper to perform JSON requests.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e policy.ErrorResponse
		respBody, _ := io.ReadAll(resp.Body)
		msg := string(respBody)
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
