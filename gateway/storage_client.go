package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// StorageClient uploads ticket QR images to the object store. Uploads are
// upserts: re-running fulfillment for the same path overwrites the object
// instead of failing.
type StorageClient struct {
	baseURL       string
	publicBaseURL string
	httpClient    *http.Client
}

func NewStorageClient(baseURL, publicBaseURL string) StorageClient {
	return StorageClient{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c StorageClient) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPut,
		c.baseURL+"/"+path,
		bytes.NewReader(data),
	)
	if err != nil {
		return "", fmt.Errorf("could not build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not upload %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status code for PUT %s: %d", path, resp.StatusCode)
	}

	return c.publicBaseURL + "/" + path, nil
}
