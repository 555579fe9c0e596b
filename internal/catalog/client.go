package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"dcia/internal/errors"
	"dcia/internal/models"
)

// ErrCatalog flags a failed evidence-catalog request: a transport error, a
// non-2xx response, or a malformed body.
var ErrCatalog = errors.NewSentinel("evidence catalog request failed")

// Client talks to the evidence-catalog collaborator over HTTP+JSON. The base
// endpoint is injected at construction; there is no ambient configuration.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With("source", "catalog.Client"),
	}
}

// ListCrimeSubtypes fetches the crime subtype names known to the catalog.
func (c *Client) ListCrimeSubtypes(ctx context.Context) ([]string, error) {
	var subtypes []string
	if err := c.getJSON(ctx, "/crimesubtypes", &subtypes); err != nil {
		return nil, err
	}
	return subtypes, nil
}

// ListEvidence fetches the evidence items for a crime subtype on a device.
func (c *Client) ListEvidence(
	ctx context.Context, subtype string, device models.DeviceType,
) ([]models.EvidenceItem, error) {
	urlPath := fmt.Sprintf("/evidence/%s?device=%s", url.PathEscape(subtype), url.QueryEscape(string(device)))
	var items []models.EvidenceItem
	if err := c.getJSON(ctx, urlPath, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) getJSON(ctx context.Context, urlPath string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+urlPath, nil)
	if err != nil {
		return errors.Wrap(ErrCatalog, "create request", slog.String("path", urlPath), errors.SlogError(err))
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(ErrCatalog, "do request", slog.String("path", urlPath), errors.SlogError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Wrap(ErrCatalog, "unexpected status",
			slog.String("path", urlPath), slog.Int("status", resp.StatusCode))
	}
	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(ErrCatalog, "decode response", slog.String("path", urlPath), errors.SlogError(err))
	}
	return nil
}
