// Package ncbi pages through the NCBI Datasets v2 genome dataset_report
// endpoint for a taxon and flattens each report into an assembly row.
package ncbi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
)

// httpClient performs requests; tests may replace it with a mock transport.
var httpClient = &http.Client{Timeout: 60 * time.Second}

const (
	DefaultBaseURL  = "https://api.ncbi.nlm.nih.gov/datasets/v2"
	DefaultPageSize = 500
	DefaultTaxonID  = "80866"

	userAgent = "delftia-fetcher/1.0"
)

// StatusError is returned when the API answers with anything but 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ncbi datasets returned status %d: %s", e.Code, strings.TrimSpace(e.Body))
}

// Client fetches dataset reports. The zero value uses the public endpoint,
// a page size of 500 and the pass quality policy.
type Client struct {
	BaseURL  string
	APIKey   string
	PageSize int
	Policy   assembly.QualityPolicy
	Cache    *Cache
	Logger   *log.Logger

	// OnPage, if set, is called after every page with the number of rows
	// gathered so far and the total the server reported.
	OnPage func(fetched, total int)
}

// Result is what a fetch gathered, complete or not.
type Result struct {
	Rows       []assembly.Row
	Pages      int
	TotalCount int
}

type page struct {
	Reports       []assembly.Report `json:"reports"`
	NextPageToken string            `json:"next_page_token"`
	TotalCount    int               `json:"total_count"`
}

// FetchTaxon follows next_page_token until the server stops sending one.
// A failed page ends the loop: the rows from earlier pages are returned
// together with the error, and nothing is retried.
func (c *Client) FetchTaxon(ctx context.Context, taxonID string) (*Result, error) {
	res := &Result{}
	logger := c.logger()
	token := ""
	for {
		p, err := c.fetchPage(ctx, taxonID, token)
		if err != nil {
			return res, err
		}
		res.Pages++
		if p.TotalCount > 0 {
			res.TotalCount = p.TotalCount
		}
		for _, r := range p.Reports {
			res.Rows = append(res.Rows, assembly.FromReport(r, c.policy()))
		}
		logger.Debug("fetched dataset_report page", "taxon", taxonID, "page", res.Pages, "reports", len(p.Reports), "total_count", res.TotalCount)
		if c.OnPage != nil {
			c.OnPage(len(res.Rows), res.TotalCount)
		}
		if p.NextPageToken == "" {
			return res, nil
		}
		token = p.NextPageToken
	}
}

// PageURL builds the request URL for one page. The token is passed through
// exactly as the server sent it.
func (c *Client) PageURL(taxonID, pageToken string) string {
	params := url.Values{}
	params.Set("filters.assembly_status", "latest")
	params.Set("filters.exclude_atypical", "true")
	params.Set("page_size", strconv.Itoa(c.pageSize()))
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return fmt.Sprintf("%s/genome/taxon/%s/dataset_report?%s", base, url.PathEscape(taxonID), params.Encode())
}

func (c *Client) fetchPage(ctx context.Context, taxonID, token string) (*page, error) {
	u := c.PageURL(taxonID, token)
	if c.Cache != nil {
		if body, ok := c.Cache.Get(u); ok {
			c.logger().Debug("dataset_report page served from cache", "url", u)
			return decodePage(body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("api-key", c.APIKey)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	p, err := decodePage(body)
	if err != nil {
		return nil, err
	}
	if c.Cache != nil {
		if err := c.Cache.Put(u, body); err != nil {
			c.logger().Warn("could not cache dataset_report page", "err", err)
		}
	}
	return p, nil
}

func decodePage(body []byte) (*page, error) {
	var p page
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode dataset_report page: %w", err)
	}
	return &p, nil
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c *Client) policy() assembly.QualityPolicy {
	if c.Policy == "" {
		return assembly.PolicyPass
	}
	return c.Policy
}

func (c *Client) logger() *log.Logger {
	if c.Logger == nil {
		return log.Default()
	}
	return c.Logger
}
