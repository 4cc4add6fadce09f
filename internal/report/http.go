// Package report contains the report-generation collaborators: a client for
// the remote report service and a Postgres archive used when no service is
// configured.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/JonMunkholm/fleetdata/internal/core"
	"github.com/JonMunkholm/fleetdata/internal/logging"
)

// Multipart part names expected by the report service.
const (
	PartOperational = "operational"
	PartBase        = "base"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// HTTPGenerator posts both uploads to the report service.
type HTTPGenerator struct {
	endpoint string
	client   *http.Client
}

// NewHTTPGenerator returns a generator posting to endpoint. A nil client
// gets a default client with the given timeout.
func NewHTTPGenerator(endpoint string, client *http.Client, timeout time.Duration) *HTTPGenerator {
	if client == nil {
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPGenerator{endpoint: endpoint, client: client}
}

type generateResponse struct {
	ReportID string `json:"reportId"`
}

// Generate implements core.Generator.
func (g *HTTPGenerator) Generate(ctx context.Context, b core.Bundle) (core.ReportHandle, error) {
	body, contentType, err := encodeBundle(b)
	if err != nil {
		return "", fmt.Errorf("encode report request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, body)
	if err != nil {
		return "", fmt.Errorf("create report request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("report request failed: %w", err)
	}
	defer resp.Body.Close()

	logging.FromContext(ctx).Debug("report service responded",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("report service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode report response: %w", err)
	}
	if out.ReportID == "" {
		return "", errors.New("report service returned no reportId")
	}
	return core.ReportHandle(out.ReportID), nil
}

// encodeBundle writes the raw uploads as two file parts.
func encodeBundle(b core.Bundle) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	parts := []struct {
		name string
		slot core.SlotBundle
	}{
		{PartOperational, b.Operational},
		{PartBase, b.Base},
	}
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.name, p.slot.Upload.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(p.slot.Upload.Content); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
