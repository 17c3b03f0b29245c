package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/ethanolivertroy/psirt-check/internal/cache"
	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
)

// PSIRTClient fetches security advisories from the Cisco PSIRT openVuln API
type PSIRTClient struct {
	httpClient *http.Client
	baseURL    string
	cache      *cache.Cache
	retry      RetryConfig
	logger     *zap.Logger
}

// NewPSIRTClient creates a client that authenticates with OAuth2 client
// credentials. c may be nil to disable the disk cache.
func NewPSIRTClient(ctx context.Context, cfg models.PSIRTConfig, timeout time.Duration, c *cache.Cache) *PSIRTClient {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	// Token requests use the same timeout as API calls
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
	httpClient := cc.Client(ctx)
	httpClient.Timeout = timeout

	return &PSIRTClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		cache:      c,
		retry:      DefaultRetryConfig(),
		logger:     logging.L("psirt"),
	}
}

// WithRetry replaces the retry policy
func (c *PSIRTClient) WithRetry(cfg RetryConfig) *PSIRTClient {
	c.retry = cfg
	return c
}

// advisoryJSON is one advisory record as returned by the API
type advisoryJSON struct {
	AdvisoryID     string     `json:"advisoryId"`
	AdvisoryTitle  string     `json:"advisoryTitle"`
	PublicationURL string     `json:"publicationUrl"`
	SIR            string     `json:"sir"`
	Feature        string     `json:"feature"`
	Summary        string     `json:"summary"`
	CVEs           []string   `json:"cves"`
	BugIDs         []string   `json:"bugIDs"`
	CVSSBaseScore  flexString `json:"cvssBaseScore"`
	FirstPublished string     `json:"firstPublished"`
	LastUpdated    string     `json:"lastUpdated"`
}

// flexString accepts a JSON string, number or null
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type advisoriesResponse struct {
	Advisories []advisoryJSON `json:"advisories"`
}

type errorResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// errNoData marks the API's "no advisories for this version" answer
var errNoData = errors.New("no advisories published")

// Fetch returns the advisories published for an OS type and version.
// It implements correlator.AdvisorySource.
func (c *PSIRTClient) Fetch(ctx context.Context, osType models.OSType, version string) ([]models.Advisory, error) {
	reqURL := c.advisoryURL(osType, version)

	// Check cache first
	if c.cache != nil {
		if cached, ok := c.cache.Get(reqURL); ok {
			advisories, err := parseAdvisories(cached)
			if err == nil {
				c.logger.Debug("advisory cache hit",
					zap.String(logging.KeyOSType, string(osType)),
					zap.String(logging.KeyVersion, version),
				)
				return advisories, nil
			}
			c.logger.Debug("ignoring unreadable cache entry", zap.String("path", c.cache.Path(reqURL)), zap.Error(err))
		}
	}

	data, err := c.get(ctx, reqURL)
	if errors.Is(err, errNoData) {
		data = []byte("[]")
	} else if err != nil {
		return nil, err
	}

	advisories, err := parseAdvisories(data)
	if err != nil {
		return nil, err
	}

	// Only successful responses are cached
	if c.cache != nil {
		if err := c.cache.Set(reqURL, data); err != nil {
			c.logger.Debug("failed to write cache entry", zap.Error(err))
		}
	}
	return advisories, nil
}

func (c *PSIRTClient) advisoryURL(osType models.OSType, version string) string {
	return fmt.Sprintf("%s/OSType/%s?version=%s",
		c.baseURL, url.PathEscape(string(osType)), url.QueryEscape(version))
}

func (c *PSIRTClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	headers := http.Header{}
	headers.Set("Accept", "application/json")

	resp, err := doWithRetry(ctx, c.httpClient, http.MethodGet, reqURL, nil, headers, c.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch advisories: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.ErrorCode == "NO_DATA_FOUND" {
			return nil, errNoData
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}
	return data, nil
}

// parseAdvisories accepts either {"advisories": [...]} or a bare array
func parseAdvisories(data []byte) ([]models.Advisory, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to parse advisories: empty response")
	}

	var records []advisoryJSON
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse advisories: %w", err)
		}
	} else {
		var resp advisoriesResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse advisories: %w", err)
		}
		records = resp.Advisories
	}

	advisories := make([]models.Advisory, 0, len(records))
	for _, r := range records {
		advisories = append(advisories, models.Advisory{
			ID:             r.AdvisoryID,
			Title:          r.AdvisoryTitle,
			URL:            r.PublicationURL,
			SIR:            r.SIR,
			Feature:        r.Feature,
			Summary:        r.Summary,
			CVEs:           r.CVEs,
			BugIDs:         r.BugIDs,
			CVSSBaseScore:  string(r.CVSSBaseScore),
			FirstPublished: parseTime(r.FirstPublished),
			LastUpdated:    parseTime(r.LastUpdated),
		})
	}
	return advisories, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
