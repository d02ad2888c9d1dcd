package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback replaces ErrCircuitOpen with a retryable service
// unavailable error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("product service is temporarily unavailable")
}

// HTTPCatalog reads products from the product service.
type HTTPCatalog struct {
	client  HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// NewHTTPCatalog creates a catalog backed by the product service at baseURL.
func NewHTTPCatalog(client HTTPDoer, baseURL string, logger *slog.Logger) *HTTPCatalog {
	return &HTTPCatalog{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type productResponse struct {
	Data *Product `json:"data"`
}

// Product fetches GET {base}/api/v1/products/{id}.
func (c *HTTPCatalog) Product(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/products/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "product lookup failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("call product service: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "product")
	}
	defer resp.Body.Close()

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode product response: %w", err)
	}
	if body.Data == nil {
		return nil, apperrors.NotFound("product", id)
	}
	return body.Data, nil
}
