// Package modio is the catalog-service client. It owns the one place remote
// failures are classified: HTTP 429 becomes a rate-limited APIError that the
// retry controller backs off on, everything else non-2xx is terminal.
package modio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	modioAPIURL    = "https://api.mod.io/v1"
	defaultTimeout = 15 * time.Second
	pageLimit      = 100
)

// APIError is a non-2xx response from the mod.io API.
type APIError struct {
	StatusCode int
	ErrorRef   int    `json:"error_ref"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mod.io api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("mod.io api error: status %d", e.StatusCode)
}

// IsRateLimited reports whether err is a mod.io rate-limit response. Every
// other failure, including transport errors, is terminal for the retry
// controller.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// Client handles communication with the mod.io API.
type Client struct {
	BaseURL    string
	APIKey     string
	Token      string
	UserAgent  string
	HTTPClient *http.Client

	// Downloads stream large archives, so they bypass the request timeout.
	DownloadClient *http.Client
}

// NewClient creates a mod.io client authenticating with the given api key.
// Token-based auth is attached later via SetToken once the oauth flow or the
// persisted token file has produced one.
func NewClient(apiKey, userAgent string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("MODIO_API_KEY is not configured")
	}
	if userAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}

	return &Client{
		BaseURL:        modioAPIURL,
		APIKey:         apiKey,
		UserAgent:      userAgent,
		HTTPClient:     &http.Client{Timeout: defaultTimeout},
		DownloadClient: &http.Client{},
	}, nil
}

// SetToken attaches an oauth bearer token for endpoints that need one.
func (c *Client) SetToken(token string) {
	c.Token = strings.TrimSpace(token)
}

func (c *Client) makeRequest(ctx context.Context, method, path string, queryParams, form url.Values, target interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	q := url.Values{}
	for k, vs := range queryParams {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if c.Token == "" {
		q.Set("api_key", c.APIKey)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode json response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			ErrorRef int    `json:"error_ref"`
			Message  string `json:"message"`
		} `json:"error"`
	}
	if body, err := io.ReadAll(resp.Body); err == nil {
		if err := json.Unmarshal(body, &envelope); err == nil {
			apiErr.ErrorRef = envelope.Error.ErrorRef
			apiErr.Message = envelope.Error.Message
		}
	}
	return apiErr
}

// RequestEmailCode starts the email authentication flow: mod.io sends a
// five-character security code to the address.
func (c *Client) RequestEmailCode(ctx context.Context, email string) error {
	form := url.Values{}
	form.Set("api_key", c.APIKey)
	form.Set("email", email)
	if err := c.makeRequest(ctx, "POST", "/oauth/emailrequest", nil, form, nil); err != nil {
		return fmt.Errorf("failed to request security code: %w", err)
	}
	return nil
}

// ExchangeEmailCode trades the emailed security code for an access token and
// attaches it to the client.
func (c *Client) ExchangeEmailCode(ctx context.Context, code string) (AccessToken, error) {
	form := url.Values{}
	form.Set("api_key", c.APIKey)
	form.Set("security_code", code)

	var token AccessToken
	if err := c.makeRequest(ctx, "POST", "/oauth/emailexchange", nil, form, &token); err != nil {
		return AccessToken{}, fmt.Errorf("failed to exchange security code: %w", err)
	}
	if token.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("security code exchange returned no token")
	}
	c.SetToken(token.AccessToken)
	return token, nil
}

// CurrentUser returns the user the attached token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	if err := c.makeRequest(ctx, "GET", "/me", nil, nil, &user); err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return user, nil
}

// ListSubscriptions drains the user's subscription list for one game,
// following result_offset pagination until the reported total is reached.
func (c *Client) ListSubscriptions(ctx context.Context, gameID uint64) ([]Mod, error) {
	var mods []Mod
	for offset := 0; ; {
		params := url.Values{}
		params.Set("game_id", strconv.FormatUint(gameID, 10))
		params.Set("_limit", strconv.Itoa(pageLimit))
		params.Set("_offset", strconv.Itoa(offset))

		var page modsPage
		if err := c.makeRequest(ctx, "GET", "/me/subscribed", params, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		mods = append(mods, page.Data...)

		offset += page.ResultCount
		if page.ResultCount == 0 || offset >= page.ResultTotal {
			return mods, nil
		}
	}
}

// Subscribe adds the mod to the user's subscription list.
func (c *Client) Subscribe(ctx context.Context, gameID, modID uint64) error {
	path := fmt.Sprintf("/games/%d/mods/%d/subscribe", gameID, modID)
	// The endpoint requires a form body even though it carries no fields.
	return c.makeRequest(ctx, "POST", path, nil, url.Values{}, nil)
}

// GetMod fetches the current catalog entry for one mod.
func (c *Client) GetMod(ctx context.Context, gameID, modID uint64) (Mod, error) {
	var mod Mod
	path := fmt.Sprintf("/games/%d/mods/%d", gameID, modID)
	if err := c.makeRequest(ctx, "GET", path, nil, nil, &mod); err != nil {
		return Mod{}, err
	}
	return mod, nil
}

// ListFiles drains the release list for one mod, oldest first.
func (c *Client) ListFiles(ctx context.Context, gameID, modID uint64) ([]Modfile, error) {
	var files []Modfile
	path := fmt.Sprintf("/games/%d/mods/%d/files", gameID, modID)
	for offset := 0; ; {
		params := url.Values{}
		params.Set("_sort", "id")
		params.Set("_limit", strconv.Itoa(pageLimit))
		params.Set("_offset", strconv.Itoa(offset))

		var page filesPage
		if err := c.makeRequest(ctx, "GET", path, params, nil, &page); err != nil {
			return nil, fmt.Errorf("failed to list files for mod %d: %w", modID, err)
		}
		files = append(files, page.Data...)

		offset += page.ResultCount
		if page.ResultCount == 0 || offset >= page.ResultTotal {
			return files, nil
		}
	}
}

// DownloadFile streams the modfile's archive to destinationPath. The binary
// URL is served outside the JSON API, so errors here are plain HTTP statuses.
func (c *Client) DownloadFile(ctx context.Context, file Modfile, destinationPath string) error {
	if file.Download.BinaryURL == "" {
		return fmt.Errorf("modfile %d has no binary url", file.ID)
	}

	dir := filepath.Dir(destinationPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create download directory %q: %w", dir, err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", file.Download.BinaryURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := c.DownloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start download for %q: %w", filepath.Base(destinationPath), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: "download failed"}
	}

	outFile, err := os.Create(destinationPath)
	if err != nil {
		return fmt.Errorf("failed to create file %q: %w", destinationPath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		// Drop the partial file so a retry starts clean.
		os.Remove(destinationPath)
		return fmt.Errorf("failed to write downloaded content to %q: %w", destinationPath, err)
	}
	return nil
}
