package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// QRClient renders a secure token into a scannable PNG through the external
// QR rendering API.
type QRClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewQRClient(baseURL string) QRClient {
	return QRClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c QRClient) Render(ctx context.Context, token string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s?size=300x300&data=%s", c.baseURL, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build QR render request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not render QR code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code for GET %s: %d", c.baseURL, resp.StatusCode)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read QR image body: %w", err)
	}

	return image, nil
}
