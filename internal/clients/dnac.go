package clients

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ethanolivertroy/psirt-check/internal/logging"
	"github.com/ethanolivertroy/psirt-check/internal/models"
	"github.com/ethanolivertroy/psirt-check/internal/parsers"
)

const (
	dnacTokenPath   = "/dna/system/api/v1/auth/token"
	dnacDevicesPath = "/dna/intent/api/v1/network-device"
)

// DNACClient pulls the device inventory and running configurations from a
// Catalyst Center (DNA Center) controller. It implements inventory.Provider.
type DNACClient struct {
	httpClient  *http.Client
	host        string
	username    string
	password    string
	concurrency int
	retry       RetryConfig
	logger      *zap.Logger
}

// NewDNACClient creates a controller client. concurrency bounds parallel
// configuration downloads.
func NewDNACClient(cfg models.DNACConfig, timeout time.Duration, concurrency int) *DNACClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		// Controllers commonly run with self-signed certificates
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	if concurrency <= 0 {
		concurrency = 8
	}

	return &DNACClient{
		httpClient:  &http.Client{Timeout: timeout, Transport: transport},
		host:        strings.TrimRight(cfg.Host, "/"),
		username:    cfg.Username,
		password:    cfg.Password,
		concurrency: concurrency,
		retry:       DefaultRetryConfig(),
		logger:      logging.L("dnac"),
	}
}

// WithRetry replaces the retry policy
func (c *DNACClient) WithRetry(cfg RetryConfig) *DNACClient {
	c.retry = cfg
	return c
}

type dnacDevice struct {
	ID string `json:"id"`
	parsers.Record
}

// Devices authenticates, lists the managed devices and downloads each
// device's running configuration. A failed configuration download leaves
// that device with no configuration text.
func (c *DNACClient) Devices(ctx context.Context) ([]models.Device, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	listed, err := c.listDevices(ctx, token)
	if err != nil {
		return nil, err
	}
	c.logger.Info("retrieved devices from controller", zap.Int("count", len(listed)))

	devices := make([]models.Device, len(listed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, d := range listed {
		devices[i] = d.Device()
		if d.ID == "" {
			continue
		}
		g.Go(func() error {
			config, err := c.config(gctx, token, d.ID)
			if err != nil {
				c.logger.Warn("failed to fetch device config",
					zap.String(logging.KeyHostname, d.Hostname),
					zap.Error(err),
				)
				return nil
			}
			devices[i].Config = config
			return nil
		})
	}
	_ = g.Wait()

	return devices, nil
}

func (c *DNACClient) token(ctx context.Context) (string, error) {
	headers := http.Header{}
	creds := base64.StdEncoding.EncodeToString([]byte(c.username + ":" + c.password))
	headers.Set("Authorization", "Basic "+creds)
	headers.Set("Content-Type", "application/json")

	data, err := c.do(ctx, http.MethodPost, c.host+dnacTokenPath, headers)
	if err != nil {
		return "", fmt.Errorf("failed to authenticate to controller: %w", err)
	}

	var resp struct {
		Token string `json:"Token"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("controller returned an empty token")
	}
	return resp.Token, nil
}

func (c *DNACClient) listDevices(ctx context.Context, token string) ([]dnacDevice, error) {
	data, err := c.do(ctx, http.MethodGet, c.host+dnacDevicesPath, authHeaders(token))
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var resp struct {
		Response []dnacDevice `json:"response"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse device list: %w", err)
	}
	return resp.Response, nil
}

// config returns the lower-cased running configuration of one device. The
// controller wraps it as {"response": "..."}; plain text is accepted too.
func (c *DNACClient) config(ctx context.Context, token, id string) (string, error) {
	reqURL := c.host + dnacDevicesPath + "/" + url.PathEscape(id) + "/config"
	data, err := c.do(ctx, http.MethodGet, reqURL, authHeaders(token))
	if err != nil {
		return "", err
	}

	text := string(data)
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var resp struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(trimmed, &resp); err == nil {
			text = resp.Response
		}
	}
	return strings.ToLower(text), nil
}

func (c *DNACClient) do(ctx context.Context, method, reqURL string, headers http.Header) ([]byte, error) {
	resp, err := doWithRetry(ctx, c.httpClient, method, reqURL, nil, headers, c.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL}
	}
	return data, nil
}

func authHeaders(token string) http.Header {
	headers := http.Header{}
	headers.Set("X-Auth-Token", token)
	headers.Set("Accept", "application/json")
	return headers
}
