package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/andybalholm/brotli"

	"snapshop/models"
)

type Config struct {
	URL   string
	Token string
	TTL   time.Duration
}

// Client reads the catalog from a remote JSON endpoint and caches it.
type Client struct {
	client *http.Client
	config Config

	cacheMu sync.RWMutex
	cached  []models.Product
	expiry  time.Time
}

func NewClient(cfg Config) *Client {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	return &Client{
		client: &http.Client{
			Transport: &HeaderTransport{Token: cfg.Token, Base: http.DefaultTransport},
			Timeout:   10 * time.Second,
		},
		config: cfg,
	}
}

// HeaderTransport asks for brotli-encoded JSON and adds the bearer token
// when one is configured.
type HeaderTransport struct {
	Token string
	Base  http.RoundTripper
}

func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br")
	return t.Base.RoundTrip(req)
}

func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	c.cacheMu.RLock()
	if c.cached != nil && time.Now().Before(c.expiry) {
		products := append([]models.Product{}, c.cached...)
		c.cacheMu.RUnlock()
		return products, nil
	}
	c.cacheMu.RUnlock()

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if c.cached != nil && time.Now().Before(c.expiry) {
		return append([]models.Product{}, c.cached...), nil
	}

	products, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cached = products
	c.expiry = time.Now().Add(c.config.TTL)
	return append([]models.Product{}, products...), nil
}

func (c *Client) fetch(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "br" {
		body = brotli.NewReader(resp.Body)
	}

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return nil, fmt.Errorf("fetch catalog: unexpected status code: %d, body: %s", resp.StatusCode, string(msg))
	}

	var products []models.Product
	if err := json.NewDecoder(body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return products, nil
}
