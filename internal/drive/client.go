package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the remote store's files endpoint.
	DefaultBaseURL = "https://www.googleapis.com/drive/v3"

	// fileFields is requested on every listing so FileRecord decodes fully.
	fileFields = "nextPageToken, files(id, name, mimeType, parents, modifiedTime, size, thumbnailLink, webViewLink)"
)

// Client issues paginated queries against the remote store. All calls pass
// through a 5 req/s (burst 10) rate limit so batch expansion stays inside
// the remote quota.
type Client struct {
	BaseURL  string
	PageSize int

	http    *http.Client
	limiter *rateLimiter
	logger  zerolog.Logger
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		PageSize: 100,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  newRateLimiter(5.0, 10),
		logger:   logger,
	}
}

// ListChildren returns every record whose parent is one of parentIDs,
// following continuation tokens until exhausted. A failure on any page
// aborts the whole call: no partial result is ever returned.
func (c *Client) ListChildren(ctx context.Context, credential string, parentIDs []string) ([]FileRecord, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	terms := make([]string, 0, len(parentIDs))
	for _, id := range parentIDs {
		terms = append(terms, fmt.Sprintf("'%s' in parents", id))
	}
	query := "(" + strings.Join(terms, " or ") + ") and trashed = false"
	return c.FetchAll(ctx, credential, query)
}

// FetchAll runs one query to completion across all result pages.
func (c *Client) FetchAll(ctx context.Context, credential string, query string) ([]FileRecord, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}

	var (
		records   []FileRecord
		pageToken string
		pages     int
	)
	for {
		page, err := c.fetchPage(ctx, credential, query, pageToken)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Files...)
		pages++

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Debug().
		Int("records", len(records)).
		Int("pages", pages).
		Msg("query complete")

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, credential, query, pageToken string) (*listResponse, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", fileFields)
	params.Set("pageSize", fmt.Sprint(c.PageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/files?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "list", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Status: resp.StatusCode, Op: "list"}
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, &TransportError{Op: "decode", Err: err}
	}
	return &page, nil
}

// Download fetches an opaque resource (thumbnail) with the credential.
func (c *Client) Download(ctx context.Context, credential, ref string) ([]byte, error) {
	if credential == "" {
		return nil, ErrNoCredential
	}
	if err := c.limiter.wait(ctx); err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Status: resp.StatusCode, Op: "download"}
	}

	return io.ReadAll(resp.Body)
}
