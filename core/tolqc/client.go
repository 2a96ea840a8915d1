package tolqc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mlwh-sync/core/reconcile"
)

// Client talks to the ToLQC API.
type Client struct {
	baseURL    string
	token      string
	pageSize   int
	httpClient *http.Client
}

// New creates a client from cfg.
func New(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient sets a custom http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

type lookupRequest struct {
	Keys []reconcile.Key `json:"keys"`
}

type patchItem struct {
	Platform   reconcile.Platform `json:"platform_type"`
	NameRoot   string             `json:"name_root"`
	Attributes map[string]any     `json:"attributes"`
}

type patchBody struct {
	Data []patchItem `json:"data"`
}

type study struct {
	ID string `json:"id"`
}

type studiesBody struct {
	Data []study `json:"data"`
}

// Lookup returns the stored records for keys. Absent keys are omitted.
func (c *Client) Lookup(ctx context.Context, keys []reconcile.Key) (map[reconcile.Key]reconcile.Record, error) {
	out := make(map[reconcile.Key]reconcile.Record, len(keys))
	for start := 0; start < len(keys); start += c.pageSize {
		end := min(start+c.pageSize, len(keys))
		var resp recordsBody
		err := c.do(ctx, "lookup", http.MethodPost, "/seq-data/lookup", lookupRequest{Keys: keys[start:end]}, &resp)
		if err != nil {
			return nil, err
		}
		for _, d := range resp.Data {
			rec := d.record()
			out[rec.Key()] = rec
		}
	}
	return out, nil
}

// Create posts rec. The API ignores keys that already exist.
func (c *Client) Create(ctx context.Context, rec reconcile.Record) error {
	return c.CreateBatch(ctx, []reconcile.Record{rec})
}

// Update patches the named attributes of one record.
func (c *Client) Update(ctx context.Context, p reconcile.Patch) error {
	return c.UpdateBatch(ctx, []reconcile.Patch{p})
}

// CreateBatch posts recs in pages.
func (c *Client) CreateBatch(ctx context.Context, recs []reconcile.Record) error {
	for start := 0; start < len(recs); start += c.pageSize {
		end := min(start+c.pageSize, len(recs))
		body := recordsBody{Data: make([]seqData, 0, end-start)}
		for _, r := range recs[start:end] {
			body.Data = append(body.Data, toWire(r))
		}
		if err := c.do(ctx, "create", http.MethodPost, "/seq-data", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// UpdateBatch sends patches in pages.
func (c *Client) UpdateBatch(ctx context.Context, patches []reconcile.Patch) error {
	for start := 0; start < len(patches); start += c.pageSize {
		end := min(start+c.pageSize, len(patches))
		body := patchBody{Data: make([]patchItem, 0, end-start)}
		for _, p := range patches[start:end] {
			body.Data = append(body.Data, patchItem{
				Platform:   p.Key.Platform,
				NameRoot:   p.Key.NameRoot,
				Attributes: p.Attributes(),
			})
		}
		if err := c.do(ctx, "update", http.MethodPatch, "/seq-data", body, nil); err != nil {
			return err
		}
	}
	return nil
}

// AutoSyncStudies lists the ids of studies flagged for automatic sync.
func (c *Client) AutoSyncStudies(ctx context.Context) ([]string, error) {
	var resp studiesBody
	if err := c.do(ctx, "list_studies", http.MethodGet, "/study?auto_sync=true", nil, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Data))
	for _, s := range resp.Data {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("tolqc: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("tolqc: %s: %w", op, err)
	}
	req.Header.Set("Token", c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tolqc: %s: %w", op, err)
		}
		return reconcile.Transient(fmt.Errorf("tolqc: %s: %w", op, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := newAPIError(op, resp.StatusCode, raw)
		if apiErr.Retryable() {
			return reconcile.Transient(apiErr)
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tolqc: %s: decode response: %w", op, err)
	}
	return nil
}
