package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
)

// DefaultTimeout bounds a single request made by APIClient and the controller.
const DefaultTimeout = 15 * time.Second

// APIError is the decoded error envelope returned by the catalog API.
type APIError struct {
	Status  int
	Message string `json:"message"`
	Code    string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s (%s): %s", e.Status, e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// Validation reports whether the API rejected the input as malformed.
func (e *APIError) Validation() bool { return e.Status == http.StatusBadRequest }

// Searcher runs a listing search. APIClient implements it.
type Searcher interface {
	Search(ctx context.Context, c search.Criteria) (*models.ListingPage, error)
}

// APIClient talks to the catalog REST API.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient creates a client for the API rooted at baseURL, e.g. "http://localhost:5000".
func NewAPIClient(baseURL, token string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Search fetches one page of listings matching c.
func (a *APIClient) Search(ctx context.Context, c search.Criteria) (*models.ListingPage, error) {
	path := "/api/properties"
	if q := c.Encode(); q != "" {
		path += "?" + q
	}
	var page models.ListingPage
	if err := a.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Featured fetches the most recent active listings.
func (a *APIClient) Featured(ctx context.Context) ([]models.Listing, error) {
	var items []models.Listing
	if err := a.do(ctx, http.MethodGet, "/api/properties/featured/list", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches a single listing.
func (a *APIClient) Get(ctx context.Context, id string) (*models.Listing, error) {
	var l models.Listing
	if err := a.do(ctx, http.MethodGet, "/api/properties/"+url.PathEscape(id), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create submits a new listing.
func (a *APIClient) Create(ctx context.Context, in models.ListingInput) (*models.Listing, error) {
	var l models.Listing
	if err := a.do(ctx, http.MethodPost, "/api/properties", in, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Delete removes a listing.
func (a *APIClient) Delete(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/api/properties/"+url.PathEscape(id), nil, nil)
}

func (a *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
